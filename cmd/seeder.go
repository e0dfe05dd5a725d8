package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/payflow/internal/auth"
	departmentDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/department"
	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
)

const seedPassword = "password"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with the permission catalogue, an administrator, a student and sample departments.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		logger := initLogger(cfg)

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		db, err := initGorm(sqlxDB, cfg.Server.Env)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if err := seed(cmd.Context(), db, cfg.Security.BCryptCost, clearData, logger); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
	},
}

type seedUser struct {
	name        string
	email       string
	phone       string
	permissions []string
}

var seedUsers = []seedUser{
	{name: "Padil Admin", email: "admin@payflow.local", phone: "081200000001", permissions: []string{auth.PermissionAdmin}},
	{name: "Fadhil", email: "student@payflow.local", phone: "081200000002", permissions: auth.DefaultStudentPermissions},
}

var seedDepartments = []departmentDatamodel.Department{
	{Name: "Informatics", Semester: 1, Cost: 500000},
	{Name: "Informatics", Semester: 2, Cost: 750000},
	{Name: "Informatics", Semester: 3, Cost: 750000},
	{Name: "Informatics", Semester: 4, Cost: 1000000},
}

func seed(ctx context.Context, db *gorm.DB, bcryptCost int, clear bool, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := clearSeedData(tx); err != nil {
				return err
			}
			logger.Info("cleared existing data")
		}

		permissionIDs := make(map[string]int64, len(auth.AllPermissions))
		for name, desc := range auth.AllPermissions {
			p := userDatamodel.Permission{Name: name, Description: desc}
			if err := tx.Where(userDatamodel.Permission{Name: name}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", name, err)
			}
			permissionIDs[name] = p.ID
		}

		hash, err := auth.HashPassword(seedPassword, bcryptCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}

		for _, su := range seedUsers {
			u := userDatamodel.User{Name: su.name, Email: su.email, Phone: su.phone, PasswordHash: hash}
			if err := tx.Where(userDatamodel.User{Email: su.email}).FirstOrCreate(&u).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", su.email, err)
			}

			for _, name := range su.permissions {
				grant := userDatamodel.UserPermission{UserID: u.ID, PermissionID: permissionIDs[name]}
				err := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Omit("User", "Permission").
					Create(&grant).Error
				if err != nil {
					return fmt.Errorf("grant %s to %s: %w", name, su.email, err)
				}
			}
			logger.Info("seeded user", "email", su.email, "permissions", su.permissions)
		}

		for _, d := range seedDepartments {
			var dept departmentDatamodel.Department
			err := tx.Where(departmentDatamodel.Department{Semester: d.Semester}).
				Attrs(departmentDatamodel.Department{Name: d.Name, Cost: d.Cost}).
				FirstOrCreate(&dept).Error
			if err != nil {
				return fmt.Errorf("seed department semester %d: %w", d.Semester, err)
			}
		}
		logger.Info("seeded departments", "count", len(seedDepartments))
		return nil
	})
}

// clearSeedData empties every table the seeder writes, children first.
func clearSeedData(tx *gorm.DB) error {
	models := []any{
		&transactionDatamodel.Transaction{},
		&userDatamodel.UserPermission{},
		&departmentDatamodel.Department{},
		&userDatamodel.User{},
		&userDatamodel.Permission{},
	}
	for _, m := range models {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}
