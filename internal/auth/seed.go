package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

// seedPasswordBytes is the number of random bytes for a generated admin password.
const seedPasswordBytes = 16

// defaultSeedName is used when the seed config leaves the name empty.
const defaultSeedName = "Administrator"

// SeedAdmin creates the initial admin account on first boot if no users exist.
// When seed.Password is empty a random password is generated and logged once.
// Returns the password that was set (empty string if seeding was skipped).
func SeedAdmin(ctx context.Context, userRepo UserRepository, seed config.SeedAdminConfig, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	password := seed.Password
	generated := password == ""
	if generated {
		passwordBytes := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		password = hex.EncodeToString(passwordBytes)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	name := seed.Name
	if name == "" {
		name = defaultSeedName
	}

	admin := &User{
		Name:         name,
		Email:        seed.Email,
		PasswordHash: hash,
		Role:         RoleAdmin,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if generated {
		logger.Warn("seed admin account created",
			"email", admin.Email,
			"password", password,
			"action_required", "store this password, it is not shown again",
		)
	} else {
		logger.Info("seed admin account created", "email", admin.Email)
	}

	return password, nil
}
