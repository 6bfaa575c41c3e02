package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/repos"
	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type EntityService interface {
	Get(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) (*domain.Entity, error)
	FindByName(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, name string) ([]*domain.Entity, error)
	Mentions(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*domain.EntityMention, error)
}

type entityService struct {
	db       *gorm.DB
	log      *logger.Logger
	entities repos.EntityRepo
	aliases  repos.EntityAliasRepo
	mentions repos.EntityMentionRepo
}

func NewEntityService(db *gorm.DB, baseLog *logger.Logger, entities repos.EntityRepo, aliases repos.EntityAliasRepo, mentions repos.EntityMentionRepo) EntityService {
	return &entityService{
		db:       db,
		log:      baseLog.With("service", "EntityService"),
		entities: entities,
		aliases:  aliases,
		mentions: mentions,
	}
}

// Get returns the entity with its aliases loaded.
func (s *entityService) Get(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) (*domain.Entity, error) {
	entity, err := s.entities.GetByID(ctx, tx, entityID)
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	if entity == nil {
		return nil, apperr.NotFoundf("entity %s not found", entityID)
	}
	aliases, err := s.aliases.ListByEntityID(ctx, tx, entityID)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	for _, a := range aliases {
		entity.Aliases = append(entity.Aliases, *a)
	}
	return entity, nil
}

func (s *entityService) FindByName(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, name string) ([]*domain.Entity, error) {
	if name == "" {
		return nil, apperr.InvalidStatef("name is required")
	}
	return s.entities.FindByName(ctx, tx, editionID, name)
}

func (s *entityService) Mentions(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*domain.EntityMention, error) {
	if _, err := s.Get(ctx, tx, entityID); err != nil {
		return nil, err
	}
	return s.mentions.ListByEntityID(ctx, tx, entityID)
}
