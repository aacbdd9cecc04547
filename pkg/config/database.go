package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anonto42/hrops/backend/internal/models"
)

// DB holds the database connections
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
}

// LoadEnv reads a .env file when one is present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, assuming environment variables are set")
	}
}

// InitDB initializes and returns the database connections
func InitDB(cfg *Config) (*DB, error) {
	sqlDB, err := initSQL(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQL database: %w", err)
	}

	mongoClient, err := initMongo(cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &DB{
		Postgres: sqlDB,
		Mongo:    mongoClient,
		MongoDB:  mongoClient.Database(cfg.MongoDatabase),
	}, nil
}

// OpenSQL picks the GORM dialector from the URL: postgres:// and DSNs with
// host= go to PostgreSQL, anything else is treated as a SQLite file.
func OpenSQL(url string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if isPostgres(url) {
		return gorm.Open(postgres.Open(url), gormConfig)
	}
	return gorm.Open(sqlite.Open(url), gormConfig)
}

func isPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://") ||
		strings.Contains(url, "host=")
}

func initSQL(url string) (*gorm.DB, error) {
	db, err := OpenSQL(url)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	slog.Info("connected to SQL database", slog.String("dialect", db.Dialector.Name()))
	return db, nil
}

func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("connected to MongoDB")
	return client, nil
}

// Migrate creates the relational tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.Team{},
		&models.LeaveRequest{},
		&models.OutboxEntry{},
	)
}

// EnsureIndexes creates the Mongo indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, indexers ...interface {
	EnsureIndexes(ctx context.Context) error
}) error {
	for _, ix := range indexers {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			slog.Error("error getting SQL DB from GORM", slog.Any("error", err))
		} else if err := sqlDB.Close(); err != nil {
			slog.Error("error closing SQL connection", slog.Any("error", err))
		} else {
			slog.Info("SQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			slog.Error("error closing MongoDB connection", slog.Any("error", err))
		} else {
			slog.Info("MongoDB connection closed")
		}
	}
}
