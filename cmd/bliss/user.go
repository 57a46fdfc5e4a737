package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eringen/bliss"
	"github.com/eringen/bliss/database"
)

// UserCmd creates an admin account. An existing account is left unchanged.
type UserCmd struct {
	Email    string `required:"" help:"Login email."`
	Password string `required:"" env:"BLISS_NEW_PASSWORD" help:"Password (at least 6 characters)."`
	Name     string `help:"Display name used for new author profiles."`
}

func (u *UserCmd) Run(g *Globals) error {
	db, err := database.Open(g.Config.DatabaseDriver, g.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	store, err := bliss.NewStore(db, g.Logger)
	if err != nil {
		db.Close()
		return err
	}
	defer store.Close()

	if err := store.EnsureUser(context.Background(), u.Email, u.Password, u.Name); err != nil {
		return err
	}
	g.Logger.Info("admin user ready", zap.String("email", u.Email))
	return nil
}
