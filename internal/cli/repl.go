package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isSignedIn(ctx context.Context) bool
	Status(ctx context.Context) error
	SignIn(ctx context.Context) error
	Schedule(ctx context.Context, eventType, at string) error
	Wait(ctx context.Context) error
	Logout(ctx context.Context) error
	EmbedURL(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it to a. It returns on
// EOF or "exit"/"quit". Handlers report their own errors.
//
//	vacuum [start]   schedule a Vacuum Only event (start defaults to now)
//	clean [start]    schedule a Full Clean event
//	wait             show the cooldown countdown
//	status | signin | logout | embed | help | exit
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	for {
		prompt := "signed out"
		if a.isSignedIn(ctx) {
			prompt = "signed in"
		}
		printlnFn(fmt.Sprintf("dustin> %s > ", prompt))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], strings.Join(parts[1:], " ")

		switch cmd {
		case "help":
			printlnFn("Available commands: vacuum [start], clean [start], wait, status, signin, logout, embed, exit")

		case "status":
			_ = a.Status(ctx)

		case "signin":
			_ = a.SignIn(ctx)

		case "vacuum":
			_ = a.Schedule(ctx, "vacuum", args)

		case "clean":
			_ = a.Schedule(ctx, "full", args)

		case "wait":
			_ = a.Wait(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "embed":
			_ = a.EmbedURL(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
