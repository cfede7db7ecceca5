// Command seed populates a fresh database with the well-known modules
// (identity, organization, monetary, stage, public_project, proposal_status)
// and the starter object types the marketplace workflow expects (project,
// proposal, deal). It is idempotent: definitions that already exist by name
// are left untouched.
//
// Flags:
//
//	--dry-run  log what would be created without writing to DB
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/adapter/postgres"
	moduledefrepo "github.com/substratehq/substrate/internal/adapter/postgres/moduledef"
	objecttyperepo "github.com/substratehq/substrate/internal/adapter/postgres/objecttype"
	"github.com/substratehq/substrate/internal/app"
	"github.com/substratehq/substrate/internal/config"
	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/service/marketplace"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "log what would be created without writing to DB")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	s := seeder{
		log:     logger,
		modules: moduledefrepo.New(pool),
		types:   objecttyperepo.New(pool),
		dryRun:  *dryRun,
	}

	if err := s.run(ctx); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seed complete", slog.Bool("dry_run", *dryRun))
}

type seeder struct {
	log     *slog.Logger
	modules *moduledefrepo.Repo
	types   *objecttyperepo.Repo
	dryRun  bool
}

func (s *seeder) run(ctx context.Context) error {
	moduleIDs, err := s.seedModules(ctx)
	if err != nil {
		return err
	}
	return s.seedTypes(ctx, moduleIDs)
}

// seedModules creates the well-known module definitions and returns a
// name-to-id map covering both freshly created and pre-existing modules.
func (s *seeder) seedModules(ctx context.Context) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(wellKnownModules))

	for _, mod := range wellKnownModules {
		existing, err := s.modules.GetByName(ctx, mod.Name)
		if err == nil {
			s.log.Info("module exists, skipping", slog.String("name", mod.Name))
			ids[mod.Name] = existing.ID
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("check module %q: %w", mod.Name, err)
		}

		if s.dryRun {
			s.log.Info("would create module", slog.String("name", mod.Name))
			continue
		}

		created, err := s.modules.Create(ctx, mod)
		if err != nil {
			return nil, fmt.Errorf("create module %q: %w", mod.Name, err)
		}
		ids[mod.Name] = created.ID
		s.log.Info("module created", slog.String("name", mod.Name))
	}

	return ids, nil
}

func (s *seeder) seedTypes(ctx context.Context, moduleIDs map[string]uuid.UUID) error {
	for _, t := range starterTypes {
		_, err := s.types.GetByName(ctx, t.name)
		if err == nil {
			s.log.Info("object type exists, skipping", slog.String("name", t.name))
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("check object type %q: %w", t.name, err)
		}

		if s.dryRun {
			s.log.Info("would create object type", slog.String("name", t.name))
			continue
		}

		def := &domain.ObjectTypeDefinition{
			Name:        t.name,
			DisplayName: t.displayName,
			IsActive:    true,
		}
		for i, b := range t.modules {
			id, ok := moduleIDs[b.module]
			if !ok {
				return fmt.Errorf("object type %q references unknown module %q", t.name, b.module)
			}
			def.Modules = append(def.Modules, domain.ModuleBinding{
				ModuleID: id,
				Required: b.required,
				Position: i,
			})
		}

		created, err := s.types.Create(ctx, def)
		if err != nil {
			return fmt.Errorf("create object type %q: %w", t.name, err)
		}
		if err := s.types.ReplaceBindings(ctx, created.ID, def.Modules); err != nil {
			return fmt.Errorf("bind modules for %q: %w", t.name, err)
		}
		s.log.Info("object type created", slog.String("name", t.name))
	}

	return nil
}

func strPtr(s string) *string { return &s }

var wellKnownModules = []*domain.ModuleDefinition{
	{
		Name:        domain.ModuleIdentity,
		DisplayName: "Identity",
		Description: strPtr("Name and contact details, drives display names"),
		Schema: []domain.FieldDefinition{
			{Key: "name", Type: domain.FieldTypeText, Label: "Name", Required: true},
			{Key: "email", Type: domain.FieldTypeEmail, Label: "Email"},
			{Key: "phone", Type: domain.FieldTypePhone, Label: "Phone"},
		},
	},
	{
		Name:        domain.ModuleOrganization,
		DisplayName: "Organization",
		Schema: []domain.FieldDefinition{
			{Key: "company_name", Type: domain.FieldTypeText, Label: "Company"},
			{Key: "assigned_to", Type: domain.FieldTypeText, Label: "Assigned to"},
			{Key: "website", Type: domain.FieldTypeURL, Label: "Website"},
		},
	},
	{
		Name:        domain.ModuleMonetary,
		DisplayName: "Monetary",
		Schema: []domain.FieldDefinition{
			{Key: "amount", Type: domain.FieldTypeNumber, Label: "Amount", Required: true},
			{Key: "currency", Type: domain.FieldTypeText, Label: "Currency", Default: "USD"},
		},
	},
	{
		Name:        domain.ModuleStage,
		DisplayName: "Stage",
		Schema: []domain.FieldDefinition{
			{Key: "stage", Type: domain.FieldTypeSelect, Label: "Stage", Default: "lead", Options: []domain.SelectOption{
				{Value: "lead", Label: "Lead"},
				{Value: "qualified", Label: "Qualified"},
				{Value: "proposal", Label: "Proposal"},
				{Value: "won", Label: "Won"},
				{Value: "lost", Label: "Lost"},
			}},
			{Key: "status", Type: domain.FieldTypeText, Label: "Status"},
		},
	},
	{
		Name:        domain.ModulePublicProject,
		DisplayName: "Public project",
		Description: strPtr("Marks an object as listed on the marketplace"),
		Schema: []domain.FieldDefinition{
			{Key: "is_public", Type: domain.FieldTypeBoolean, Label: "Public", Default: false},
			{Key: "summary", Type: domain.FieldTypeTextarea, Label: "Summary"},
		},
	},
	{
		Name:        domain.ModuleProposal,
		DisplayName: "Proposal status",
		Schema: []domain.FieldDefinition{
			{Key: "status", Type: domain.FieldTypeSelect, Label: "Status", Default: "pending", Options: []domain.SelectOption{
				{Value: "pending", Label: "Pending"},
				{Value: "accepted", Label: "Accepted"},
				{Value: "rejected", Label: "Rejected"},
			}},
		},
	},
}

type typeSeed struct {
	name        string
	displayName string
	modules     []bindingSeed
}

type bindingSeed struct {
	module   string
	required bool
}

var starterTypes = []typeSeed{
	{
		name:        "project",
		displayName: "Project",
		modules: []bindingSeed{
			{module: domain.ModuleIdentity, required: true},
			{module: domain.ModulePublicProject},
			{module: domain.ModuleMonetary},
			{module: domain.ModuleStage},
		},
	},
	{
		name:        marketplace.TypeProposal,
		displayName: "Proposal",
		modules: []bindingSeed{
			{module: domain.ModuleIdentity, required: true},
			{module: domain.ModuleProposal, required: true},
			{module: domain.ModuleMonetary},
		},
	},
	{
		name:        marketplace.TypeDeal,
		displayName: "Deal",
		modules: []bindingSeed{
			{module: domain.ModuleIdentity, required: true},
			{module: domain.ModuleStage, required: true},
			{module: domain.ModuleMonetary},
		},
	},
}
