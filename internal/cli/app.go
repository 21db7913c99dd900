// Package cli implements authctl, the operator tool for the credential
// store: hashing passwords, creating users, checking a password against a
// stored digest, and running a one-off expired-session sweep.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/reaper"
	"github.com/loginsys/authd/internal/server/repositories/sessions"
	"github.com/loginsys/authd/internal/server/repositories/users"
)

// ErrUsage is returned for an unknown command or bad arguments.
var ErrUsage = errors.New("usage error")

// Hasher produces and checks password digests.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// Backend is the storage the data commands work against.
type Backend interface {
	Users() users.Repository
	Sessions() sessions.Repository
	Close() error
}

// Opener connects to the backend on demand, so commands that need no
// storage never dial it.
type Opener func(ctx context.Context) (Backend, error)

type App struct {
	in     *bufio.Reader
	out    io.Writer
	hasher Hasher
	open   Opener
	logger logging.Logger
}

func NewApp(in io.Reader, out io.Writer, hasher Hasher, open Opener, logger logging.Logger) *App {
	return &App{
		in:     bufio.NewReader(in),
		out:    out,
		hasher: hasher,
		open:   open,
		logger: logger,
	}
}

const usage = `usage: authctl [-d dsn] [-c config.json] <command> [flags]

commands:
  hash                               print a bcrypt digest for a password
  create-user -email E -name N       add an active user
  verify-password -email E           check a password against the stored digest
  reap                               delete expired sessions once
`

// Run dispatches args[0] to its command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "hash":
		return a.Hash(ctx)
	case "create-user":
		return a.CreateUser(ctx, args[1:])
	case "verify-password":
		return a.VerifyPassword(ctx, args[1:])
	case "reap":
		return a.Reap(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

// readNewPassword asks twice and requires both entries to match.
func (a *App) readNewPassword() ([]byte, error) {
	pw, err := GetPassword(a.in, "Enter password", a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := GetPassword(a.in, "Repeat password", a.out)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if len(pw) == 0 {
		return nil, fmt.Errorf("%w: empty password", ErrUsage)
	}
	if !bytes.Equal(pw, confirm) {
		common.WipeByteArray(pw)
		return nil, fmt.Errorf("%w: passwords do not match", ErrUsage)
	}
	return pw, nil
}

func (a *App) Hash(ctx context.Context) error {
	pw, err := a.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	digest, err := a.hasher.Hash(string(pw))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, digest)
	return nil
}

func (a *App) CreateUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *email == "" || *name == "" {
		return fmt.Errorf("%w: -email and -name are required", ErrUsage)
	}

	pw, err := a.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	digest, err := a.hasher.Hash(string(pw))
	if err != nil {
		return err
	}

	backend, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	u, err := backend.Users().Create(ctx, &models.User{
		Email:          *email,
		PasswordDigest: digest,
		DisplayName:    *name,
		Active:         true,
	})
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}

	a.logger.Info(ctx, "user created", "user_id", u.ID, "email", u.Email)
	fmt.Fprintf(a.out, "created user id=%d email=%s\n", u.ID, u.Email)
	return nil
}

func (a *App) VerifyPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-password", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "user email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *email == "" {
		return fmt.Errorf("%w: -email is required", ErrUsage)
	}

	pw, err := GetPassword(a.in, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	backend, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	u, err := backend.Users().FindActiveByEmail(ctx, *email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Fprintln(a.out, "no active user with that email")
			return common.ErrorNotFound
		}
		return err
	}

	if !a.hasher.Verify(string(pw), u.PasswordDigest) {
		fmt.Fprintln(a.out, "password does NOT match")
		return common.ErrorUnauthorized
	}
	fmt.Fprintln(a.out, "password matches")
	return nil
}

func (a *App) Reap(ctx context.Context) error {
	backend, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	n, err := reaper.New(backend.Sessions(), time.Hour, a.logger).RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %d expired sessions\n", n)
	return nil
}
