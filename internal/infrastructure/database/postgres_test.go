package database

import (
	"context"
	"errors"
	"testing"

	"whatsapp-booking-bot/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConnectionStrings(t *testing.T) {
	cfg := config.DBConfig{
		Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "booking", SSLMode: "disable", TimeZone: "UTC",
	}

	assert.Equal(t, "host=db user=bot password=pw dbname=booking port=5432 sslmode=disable TimeZone=UTC", DSN(cfg))
	assert.Equal(t, "postgres://bot:pw@db:5432/booking?sslmode=disable", URL(cfg))

	cfg.Password = "p@ss/w"
	assert.Equal(t, "postgres://bot:p%40ss%2Fw@db:5432/booking?sslmode=disable", URL(cfg))
}

func TestPing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection reset"))
	assert.Error(t, Ping(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, LogLevel("development"))
	assert.Equal(t, logger.Warn, LogLevel("production"))
}
