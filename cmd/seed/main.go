package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/cleaning-crm/api/internal/config"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/logger"
	"github.com/cleaning-crm/api/internal/phone"
	"github.com/cleaning-crm/api/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// seed creates the first admin so somebody can log in and create the rest.
func main() {
	rawPhone := flag.String("phone", "", "Admin phone number")
	password := flag.String("password", "", "Admin password")
	firstName := flag.String("first-name", "", "Admin first name")
	lastName := flag.String("last-name", "", "Admin last name")
	flag.Parse()

	if *rawPhone == "" {
		*rawPhone = os.Getenv("SEED_PHONE")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *firstName == "" {
		*firstName = "Admin"
	}
	if *lastName == "" {
		*lastName = "Admin"
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("load config")
	}
	logger.Init(cfg.LogLevel)

	if *rawPhone == "" || *password == "" {
		logger.Log.Fatal("phone and password are required (flags or SEED_PHONE / SEED_PASSWORD)")
	}
	if len(*password) < 8 {
		logger.Log.Fatal("password must be at least 8 characters")
	}
	normalized, err := phone.Normalize(*rawPhone)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid phone")
	}

	if err := database.Migrate(cfg.DatabaseURL, migrations.FS); err != nil {
		logger.Log.WithError(err).Fatal("migrate")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.WithError(err).Fatal("connect to database")
	}
	defer pool.Close()

	q := database.New(pool)
	existing, err := q.GetStaffByPhone(ctx, normalized)
	if err == nil {
		logger.Log.WithField("staff_id", existing.ID).Info("staff with this phone already exists, skipping")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Log.WithError(err).Fatal("check existing staff")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.WithError(err).Fatal("hash password")
	}

	admin, err := q.CreateStaff(ctx, database.CreateStaffParams{
		Phone:          normalized,
		FirstName:      *firstName,
		LastName:       *lastName,
		HashedPassword: string(hashed),
		Role:           enum.RoleAdmin,
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("create admin")
	}
	logger.Log.WithField("staff_id", admin.ID).WithField("phone", admin.Phone).Info("admin created")
}
