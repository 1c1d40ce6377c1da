package repository

import (
	"collab_chat_service/internal/chat/domain"

	"gorm.io/gorm"
)

// InsertChannel postgres NOTIFY channel fired on message insert
const InsertChannel = "message_inserted"

const insertTriggerSQL = `
CREATE OR REPLACE FUNCTION notify_message_inserted() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify('` + InsertChannel + `', json_build_object('table', TG_TABLE_NAME, 'id', NEW.id, 'thread_id', NEW.thread_id)::text);
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS messages_notify_insert ON messages;
CREATE TRIGGER messages_notify_insert AFTER INSERT ON messages
  FOR EACH ROW EXECUTE FUNCTION notify_message_inserted();
`

// AutoMigrate create chat tables, on postgres also the insert NOTIFY trigger
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.GroupMember{},
		&domain.Thread{},
		&domain.Message{},
	); err != nil {
		return err
	}
	if db.Dialector.Name() == "postgres" {
		return db.Exec(insertTriggerSQL).Error
	}
	return nil
}
