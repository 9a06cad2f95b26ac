package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/comanda-app/api/internal/config"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/logger"
)

type seedOptions struct {
	email    string
	password string
	name     string
	catalog  bool
}

func main() {
	if err := newSeedCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Seed the first admin and a demo catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", envOr("SEED_EMAIL", "admin@comanda.local"), "Admin email address")
	cmd.Flags().StringVar(&opts.password, "password", os.Getenv("SEED_PASSWORD"), "Admin password")
	cmd.Flags().StringVar(&opts.name, "name", envOr("SEED_NAME", "Administrador"), "Admin full name")
	cmd.Flags().BoolVar(&opts.catalog, "catalog", true, "Seed payment methods, regions, drivers and products")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if opts.password == "" {
		opts.password = "password123"
		log.Warn("using default admin password; change it immediately outside development")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// Everything or nothing.
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := database.New(tx)
	if err := seedAdmin(ctx, q, log, opts); err != nil {
		return err
	}
	if opts.catalog {
		if err := seedCatalog(ctx, q, log); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Info("seed completed")
	return nil
}

// seedAdmin creates the first admin unless the email is already taken.
func seedAdmin(ctx context.Context, q *database.Queries, log *zap.Logger, opts seedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.email))

	existing, err := q.GetAdminByEmail(ctx, email)
	if err == nil {
		log.Info("admin already exists, skipping", zap.String("email", email), zap.Stringer("id", existing.ID))
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin, err := q.CreateAdmin(ctx, database.CreateAdminParams{
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       opts.name,
		Role:           enum.UserRoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("created admin", zap.String("email", email), zap.Stringer("id", admin.ID))
	return nil
}

type seedProduct struct {
	name, category, price string
	addons                []string
}

// seedCatalog inserts a small demo menu. It runs only against an empty catalog.
func seedCatalog(ctx context.Context, q *database.Queries, log *zap.Logger) error {
	products, err := q.ListAvailableProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(products) > 0 {
		log.Info("catalog already seeded, skipping", zap.Int("products", len(products)))
		return nil
	}

	for i, pm := range []struct{ name, icon string }{
		{"Pix", "pix"},
		{"Cartão de crédito", "credit-card"},
		{"Cartão de débito", "credit-card"},
		{"Dinheiro", "banknote"},
	} {
		if _, err := q.CreatePaymentMethod(ctx, database.CreatePaymentMethodParams{
			Name:         pm.name,
			Icon:         pgtype.Text{String: pm.icon, Valid: true},
			DisplayOrder: int32(i),
		}); err != nil {
			return fmt.Errorf("create payment method %s: %w", pm.name, err)
		}
	}

	for _, reg := range []struct{ name, fee string }{
		{"Centro", "5.00"},
		{"Zona Norte", "8.00"},
		{"Zona Sul", "10.00"},
	} {
		if _, err := q.CreateDeliveryRegion(ctx, database.CreateDeliveryRegionParams{
			Name: reg.name,
			Fee:  numeric(reg.fee),
		}); err != nil {
			return fmt.Errorf("create region %s: %w", reg.name, err)
		}
	}

	for _, d := range []struct{ name, phone string }{
		{"João Entregador", "5511990000001"},
		{"Ana Motoboy", "5511990000002"},
	} {
		if _, err := q.CreateDriver(ctx, database.CreateDriverParams{Name: d.name, Phone: d.phone}); err != nil {
			return fmt.Errorf("create driver %s: %w", d.name, err)
		}
	}

	addonIDs := make(map[string]database.ProductAddon)
	for _, a := range []struct {
		name, price string
		global      bool
		maxOptions  int32
	}{
		{"Bacon", "4.50", false, 2},
		{"Cheddar", "3.00", false, 3},
		{"Ovo", "2.50", false, 2},
		{"Sachê de ketchup", "0.00", true, 5},
	} {
		addon, err := q.CreateAddon(ctx, database.CreateAddonParams{
			Name:       a.name,
			Price:      numeric(a.price),
			IsGlobal:   a.global,
			MaxOptions: pgtype.Int4{Int32: a.maxOptions, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("create addon %s: %w", a.name, err)
		}
		addonIDs[a.name] = addon
	}

	for _, p := range []seedProduct{
		{"X-Burger", "Lanches", "25.90", []string{"Bacon", "Cheddar", "Ovo"}},
		{"X-Salada", "Lanches", "23.90", []string{"Bacon", "Ovo"}},
		{"Batata frita", "Porções", "18.00", []string{"Cheddar", "Bacon"}},
		{"Refrigerante lata", "Bebidas", "6.00", nil},
	} {
		product, err := q.CreateProduct(ctx, database.CreateProductParams{
			Name:     p.name,
			Category: p.category,
			Price:    numeric(p.price),
		})
		if err != nil {
			return fmt.Errorf("create product %s: %w", p.name, err)
		}
		for _, name := range p.addons {
			if err := q.LinkAddonToProduct(ctx, database.LinkAddonToProductParams{
				ProductID: product.ID,
				AddonID:   addonIDs[name].ID,
			}); err != nil {
				return fmt.Errorf("link %s to %s: %w", name, p.name, err)
			}
		}
	}

	log.Info("seeded demo catalog")
	return nil
}

func numeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(fmt.Sprintf("seed: bad numeric %q: %v", s, err))
	}
	return n
}
