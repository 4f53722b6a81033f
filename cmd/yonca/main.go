package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yonca-ai/yonca/internal/config"
	"github.com/yonca-ai/yonca/internal/daemon"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "yonca: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	if err := ensureDaemon(cfg.SocketPath); err != nil {
		return err
	}

	ctx := context.Background()
	client, err := daemon.Dial(ctx, cfg.SocketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	// One-shot mode: the request is the command line.
	if len(os.Args) > 1 {
		result, err := client.Send(ctx, "", strings.Join(os.Args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(result.Response)
		return nil
	}

	return repl(ctx, client)
}

func repl(ctx context.Context, client *daemon.Client) error {
	fmt.Println("yonca - your personal assistant. Type /quit to exit, /history for this session's turns.")

	sessionID := ""
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/health":
			health, err := client.Health(ctx)
			if err != nil {
				fmt.Println("daemon unreachable:", err)
				continue
			}
			fmt.Printf("%s, up %s, domains: %s\n", health.Status, health.Uptime, strings.Join(health.Domains, ", "))
			continue
		case "/history":
			if sessionID == "" {
				fmt.Println("No turns yet in this session.")
				continue
			}
			history, err := client.History(ctx, sessionID, 0)
			if err != nil {
				fmt.Println("history unavailable:", err)
				continue
			}
			for _, turn := range history.Turns {
				fmt.Printf("%s: %s\n", turn.Role, turn.Content)
			}
			continue
		}

		result, err := client.Send(ctx, sessionID, line)
		if err != nil {
			fmt.Println("request failed:", err)
			continue
		}
		sessionID = result.SessionID
		fmt.Println(result.Response)
	}
}

// ensureDaemon starts yonca-daemon if nothing is listening on the socket
// yet, then waits for it to come up.
func ensureDaemon(socketPath string) error {
	if socketReady(socketPath) {
		return nil
	}

	bin, err := daemonBinary()
	if err != nil {
		return err
	}
	cmd := exec.Command(bin)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	go cmd.Wait()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if socketReady(socketPath) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not become ready on %s", socketPath)
}

func socketReady(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// daemonBinary looks for yonca-daemon next to the current executable,
// falling back to PATH.
func daemonBinary() (string, error) {
	self, err := os.Executable()
	if err == nil {
		sibling := filepath.Join(filepath.Dir(self), "yonca-daemon")
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	if path, err := exec.LookPath("yonca-daemon"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("yonca-daemon binary not found")
}
