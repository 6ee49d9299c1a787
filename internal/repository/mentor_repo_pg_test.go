package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewMentorRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewMentorRepository(pool)
	assert.NotNil(t, repo)
}
