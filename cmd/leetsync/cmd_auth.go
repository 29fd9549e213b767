package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"leetsync/internal/auth"
	"leetsync/internal/config"
	"leetsync/internal/store"
)

var loginEmail string

// loginCmd authenticates against the backend and stores the session
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the backend",
	Long: `Authenticates with the backend using email and password, then stores the
session token locally so watch can deliver submissions.

The password is read from the terminal and never written to disk.`,
	RunE: runLogin,
}

// logoutCmd clears the stored session and sync state
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear local state",
	RunE:  runLogout,
}

// statusCmd prints sync state and session info
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status and recent submissions",
	RunE:  runStatus,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	email := loginEmail
	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	client := auth.NewClient(cfg.Backend.LoginURL(), logger)
	sess, err := client.Login(cmd.Context(), email, string(password))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	state, err := store.Open(config.DataPath())
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer state.Close()

	if err := auth.SaveSession(state, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := state.SetStatus(store.StatusConnected); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	name := sess.Name
	if name == "" {
		name = sess.Email
	}
	fmt.Printf("Logged in as %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	state, err := store.Open(config.DataPath())
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer state.Close()

	if err := state.Reset(); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := store.Open(config.DataPath())
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer state.Close()

	status, err := state.SyncStatus()
	if err != nil {
		return err
	}
	count, err := state.ProblemsSynced()
	if err != nil {
		return err
	}
	last, ok, err := state.LastSync()
	if err != nil {
		return err
	}

	fmt.Printf("Status:          %s\n", status)
	fmt.Printf("Problems synced: %d\n", count)
	if ok {
		fmt.Printf("Last sync:       %s (%s)\n", last.Format(time.RFC3339), relativeTime(time.Since(last)))
	} else {
		fmt.Println("Last sync:       never")
	}

	sess, ok, err := auth.LoadSession(state)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Session:         not logged in")
	} else {
		who := sess.Name
		if who == "" {
			who = sess.Email
		}
		if auth.TokenValid(sess.Token) {
			fmt.Printf("Session:         %s\n", who)
		} else {
			fmt.Printf("Session:         %s (token expired, run login again)\n", who)
		}
	}

	subs, err := state.RecentSubmissions(5)
	if err != nil {
		return err
	}
	if len(subs) > 0 {
		fmt.Println("\nRecent submissions:")
		for _, sub := range subs {
			fmt.Printf("  %-40s %-12s %s\n", sub.Slug, sub.Language, relativeTime(time.Since(sub.SyncedAt)))
		}
	}
	return nil
}

// relativeTime renders a duration the way a human reads it in a status line.
func relativeTime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
}
