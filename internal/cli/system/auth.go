package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/fleetboard/internal/auth"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/keyring"
	"github.com/julianstephens/fleetboard/internal/models"
)

// LoginCmd exchanges credentials for an access token and stores it in the OS keyring
type LoginCmd struct {
	Username string `arg:"" help:"Account username."`
	Password string `help:"Account password; prompted for when omitted." env:"FLEETBOARD_PASSWORD"`
}

func (cmd *LoginCmd) password() (string, error) {
	if cmd.Password != "" {
		return cmd.Password, nil
	}
	var pw string
	err := huh.NewInput().
		Title("Password for " + cmd.Username).
		EchoMode(huh.EchoModePassword).
		Value(&pw).
		Run()
	return pw, err
}

func (cmd *LoginCmd) Run(ctx *cli.Context) error {
	pw, err := cmd.password()
	if err != nil {
		return err
	}
	tok, err := ctx.Service.Login(context.Background(), models.LoginRequest{Username: cmd.Username, Password: pw})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	ctx.Printf("✓ Logged in as %s (%s)\n", tok.User.Username, tok.User.Role)
	if err := keyring.SetToken(ctx.Config.APIURL, tok.AccessToken); err != nil {
		ctx.Printf("⚠ Could not store the token in the OS keyring: %v\n", err)
		ctx.Println("  Export it instead: FLEETBOARD_TOKEN=" + tok.AccessToken)
		return nil
	}
	ctx.Println("  Token stored in the OS keyring")
	return nil
}

// LogoutCmd forgets the stored token
type LogoutCmd struct{}

func (cmd *LogoutCmd) Run(ctx *cli.Context) error {
	err := keyring.DeleteToken(ctx.Config.APIURL)
	if errors.Is(err, keyring.ErrNotFound) {
		ctx.Println("Not logged in")
		return nil
	}
	if err != nil {
		return err
	}
	ctx.Println("✓ Token removed from the OS keyring")
	return nil
}

// WhoamiCmd shows the account the current token belongs to
type WhoamiCmd struct{}

func (cmd *WhoamiCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Engine.Whoami(context.Background())
	if err != nil {
		return err
	}
	ctx.Printf("%s (%s)\n", s.Username, s.Role)
	if s.CanMutate() {
		ctx.Println("  can edit schedules")
	} else {
		ctx.Println("  read-only")
	}
	if !s.ExpiresAt.IsZero() {
		ctx.Printf("  token expires %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// ResolveToken picks the access token to use: an explicit one first, then
// the keyring entry for apiURL.
func ResolveToken(explicit, apiURL string) string {
	if explicit != "" {
		return explicit
	}
	tok, err := keyring.GetToken(apiURL)
	if err != nil {
		return ""
	}
	if s, err := auth.FromToken(tok); err == nil && s.Expired(time.Now()) {
		return ""
	}
	return tok
}
