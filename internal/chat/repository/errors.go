package repository

import (
	"errors"

	errprocess "collab_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// wrapDBErr map driver errors to error kinds
func wrapDBErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return errprocess.Wrap(errprocess.ErrNotFound, op, err)
	default:
		return errprocess.Wrap(errprocess.ErrTransient, op, err)
	}
}
