// seed inserts development sample data for local testing: an owner, a member, their organization
// and a starter project. Idempotent: skips everything if the dev user already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"teamos/backend/internal/config"
	"teamos/backend/internal/db"
	identitydomain "teamos/backend/internal/identity/domain"
	membershipdomain "teamos/backend/internal/membership/domain"
	organizationdomain "teamos/backend/internal/organization/domain"
	projectdomain "teamos/backend/internal/project/domain"
	"teamos/backend/internal/security"
	"teamos/backend/internal/storage"
	userdomain "teamos/backend/internal/user/domain"
)

const (
	devUserEmail     = "dev@example.com"
	devPassword      = "password123"
	devUserID        = "dev-user-001"
	devUser2ID       = "dev-user-002"
	devIdentityID    = "dev-identity-001"
	devIdentity2ID   = "dev-identity-002"
	devOrgID         = "dev-org-001"
	devMembershipID  = "dev-membership-001"
	devMembership2ID = "dev-membership-002"
	devProjectID     = "dev-project-001"
	devTaskID        = "dev-task-001"
	memberEmail      = "member@example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	applied, err := seed(context.Background(), storage.NewPostgres(conn), security.NewHasher(cfg.BcryptCost), time.Now().UTC())
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if !applied {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		return
	}
	log.Println("Seed completed successfully.")
	fmt.Printf("Owner login: %s / %s\n", devUserEmail, devPassword)
	fmt.Printf("Member login: %s / %s\n", memberEmail, devPassword)
}

// seed writes the sample data in one transaction. It reports false when the data already exists.
func seed(ctx context.Context, store storage.Store, hasher *security.Hasher, now time.Time) (bool, error) {
	existing, err := store.Users().GetByEmail(ctx, devUserEmail)
	if err != nil {
		return false, fmt.Errorf("seed check: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	users := []struct {
		userID, identityID, membershipID, email, name string
		role                                          membershipdomain.Role
	}{
		{devUserID, devIdentityID, devMembershipID, devUserEmail, "Dev Owner", membershipdomain.RoleOwner},
		{devUser2ID, devIdentity2ID, devMembership2ID, memberEmail, "Member User", membershipdomain.RoleMember},
	}

	err = store.InTx(ctx, func(tx storage.Repos) error {
		if err := tx.Organizations().CreateOrganization(ctx, &organizationdomain.Org{
			ID:        devOrgID,
			Name:      "Acme Dev",
			Slug:      "acme-dev",
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("create org: %w", err)
		}
		for _, u := range users {
			if err := tx.Users().Create(ctx, &userdomain.User{ID: u.userID, Email: u.email, Name: u.name, CreatedAt: now, UpdatedAt: now}); err != nil {
				return fmt.Errorf("create user %s: %w", u.email, err)
			}
			if err := tx.Identities().Create(ctx, &identitydomain.Identity{
				ID:           u.identityID,
				UserID:       u.userID,
				Provider:     identitydomain.IdentityProviderLocal,
				ProviderID:   u.email,
				PasswordHash: passwordHash,
				CreatedAt:    now,
			}); err != nil {
				return fmt.Errorf("create identity %s: %w", u.email, err)
			}
			if err := tx.Memberships().CreateMembership(ctx, &membershipdomain.Membership{
				ID:        u.membershipID,
				UserID:    u.userID,
				OrgID:     devOrgID,
				Role:      u.role,
				CreatedAt: now,
			}); err != nil {
				return fmt.Errorf("create membership %s: %w", u.email, err)
			}
		}
		if err := tx.Projects().CreateProject(ctx, &projectdomain.Project{
			ID:          devProjectID,
			OrgID:       devOrgID,
			Name:        "Getting started",
			Description: "Sample project created by the seed",
			CreatedAt:   now,
		}); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		if err := tx.Projects().CreateTask(ctx, &projectdomain.Task{
			ID:           devTaskID,
			OrgID:        devOrgID,
			ProjectID:    devProjectID,
			Title:        "Invite your team",
			Status:       projectdomain.TaskStatusTodo,
			Priority:     projectdomain.TaskPriorityMedium,
			CreatedByID:  devUserID,
			AssignedToID: devUser2ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
