package persistence

import (
	"errors"

	"gorm.io/gorm"
)

// firstOr loads the first row of q, reporting a missing row as notFound
func firstOr[M any](q *gorm.DB, notFound error) (*M, error) {
	var m M
	err := q.First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
