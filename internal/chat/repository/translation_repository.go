package repository

import (
	"context"
	"errors"

	"collab_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TranslationRepository definition translation cache
type TranslationRepository interface {
	// Find 命中回傳 entry, 未命中回傳 nil, nil
	Find(ctx context.Context, key domain.TranslationKey) (*domain.Translation, error)
	// Save upsert on the 4-tuple key
	Save(ctx context.Context, tr *domain.Translation) error
	// ListByEntities 依 entity id 分組, fingerprint 比對由呼叫端處理
	ListByEntities(ctx context.Context, entityType string, entityIDs []string) (map[string][]domain.Translation, error)
}

type translationRepository struct {
	coll *mongo.Collection
}

// NewMongoTranslationRepository create a mongo TranslationRepository
func NewMongoTranslationRepository(db *mongo.Database) TranslationRepository {
	return &translationRepository{coll: db.Collection("translations")}
}

// EnsureTranslationIndexes unique index on the cache key
func EnsureTranslationIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("translations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "entity_type", Value: 1},
			{Key: "entity_id", Value: 1},
			{Key: "target_language", Value: 1},
			{Key: "fingerprint", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("ux_translation_key"),
	})
	return err
}

func keyFilter(key domain.TranslationKey) bson.M {
	return bson.M{
		"entity_type":     key.EntityType,
		"entity_id":       key.EntityID,
		"target_language": key.TargetLanguage,
		"fingerprint":     key.Fingerprint,
	}
}

func (r *translationRepository) Find(ctx context.Context, key domain.TranslationKey) (*domain.Translation, error) {
	var tr domain.Translation
	err := r.coll.FindOne(ctx, keyFilter(key)).Decode(&tr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr("translation.find", err)
	}
	return &tr, nil
}

func (r *translationRepository) Save(ctx context.Context, tr *domain.Translation) error {
	key := domain.TranslationKey{
		EntityType:     tr.EntityType,
		EntityID:       tr.EntityID,
		TargetLanguage: tr.TargetLanguage,
		Fingerprint:    tr.Fingerprint,
	}
	_, err := r.coll.ReplaceOne(ctx, keyFilter(key), tr, options.Replace().SetUpsert(true))
	return wrapDBErr("translation.save", err)
}

func (r *translationRepository) ListByEntities(ctx context.Context, entityType string, entityIDs []string) (map[string][]domain.Translation, error) {
	out := make(map[string][]domain.Translation)
	if len(entityIDs) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{
		"entity_type": entityType,
		"entity_id":   bson.M{"$in": entityIDs},
	})
	if err != nil {
		return nil, wrapDBErr("translation.list", err)
	}
	defer cur.Close(ctx)

	var trs []domain.Translation
	if err := cur.All(ctx, &trs); err != nil {
		return nil, wrapDBErr("translation.list", err)
	}
	for _, tr := range trs {
		out[tr.EntityID] = append(out[tr.EntityID], tr)
	}
	return out, nil
}
