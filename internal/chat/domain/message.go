package domain

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// User profile mirror of the identity provider, author display fields
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	DisplayName string `gorm:"type:varchar(128)" json:"display_name"`
	AvatarURL   string `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
}

// Message 表示一則聊天訊息, content / author 建立後不可變
type Message struct {
	ID             string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ThreadID       string        `gorm:"type:varchar(36);not null;index:idx_messages_thread_created,priority:1" json:"thread_id"`
	AuthorID       string        `gorm:"type:varchar(64);not null;index" json:"author_id"`
	Content        string        `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time     `gorm:"not null;index:idx_messages_thread_created,priority:2" json:"created_at"`
	SourceLanguage string        `gorm:"type:varchar(16)" json:"source_language,omitempty"`
	Author         *User         `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	Translations   []Translation `gorm:"-" json:"translations,omitempty"`
}

// TranslationFor cached translation for a target language
func (m *Message) TranslationFor(lang string) (Translation, bool) {
	for _, t := range m.Translations {
		if t.TargetLanguage == lang {
			return t, true
		}
	}
	return Translation{}, false
}

// EntityMessage entity type of message translations
const EntityMessage = "message"

// Translation translation cache entry, unique on (entity_type, entity_id, target_language, fingerprint)
type Translation struct {
	EntityType     string    `bson:"entity_type" json:"entity_type"`
	EntityID       string    `bson:"entity_id" json:"entity_id"`
	TargetLanguage string    `bson:"target_language" json:"target_language"`
	Fingerprint    string    `bson:"fingerprint" json:"fingerprint"`
	SourceLanguage string    `bson:"source_language,omitempty" json:"source_language,omitempty"`
	Text           string    `bson:"text" json:"text"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// TranslationKey lookup key of the translation cache
type TranslationKey struct {
	EntityType     string
	EntityID       string
	TargetLanguage string
	Fingerprint    string
}

// KeyFor build the cache key for translating a message
func KeyFor(m *Message, lang string) TranslationKey {
	return TranslationKey{
		EntityType:     EntityMessage,
		EntityID:       m.ID,
		TargetLanguage: lang,
		Fingerprint:    Fingerprint(m.Content),
	}
}

// Fingerprint hex BLAKE2b-256 of the exact source text
func Fingerprint(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
