// Package repomanager turns a connection identifier into an opened
// documents.Repository, running schema migrations for the SQL backends.
//
// Supported identifiers:
//
//	memory:                       anonymous in-process store
//	memory://name                 named in-process store, shared by name
//	postgres://user:pw@host/db    PostgreSQL via pgx
//	sqlite:/path/to/file.db       SQLite via modernc.org/sqlite
//	file:/path/to/file.db         same as sqlite:
//	s3://bucket/prefix            S3-compatible object storage
//	redis://host:port/db          Redis
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/filex"
	"github.com/dmitrijs2005/tokenkeeper/internal/repositories/documents"
)

// RepositoryManager vends documents repositories for one SQL dialect and
// migrates its schema.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Documents(db dbx.DBTX) documents.Repository
}

// Options carries backend settings that do not fit in the identifier.
type Options struct {
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	RedisPassword  string
}

var (
	memoryMu     sync.Mutex
	memoryStores = map[string]*documents.InMemoryRepository{}
)

// seams for tests
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) documents.S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Scheme returns the lower-cased scheme of a connection identifier.
func Scheme(conn string) string {
	scheme, _, ok := strings.Cut(conn, ":")
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}

// Open opens the repository named by conn.
func Open(ctx context.Context, conn string, opts Options) (documents.Repository, error) {
	switch Scheme(conn) {
	case "memory":
		return openMemory(conn), nil
	case "postgres", "postgresql":
		return openSQL(ctx, "pgx", conn, NewPostgresRepositoryManager())
	case "sqlite":
		return openSQL(ctx, "sqlite", strings.TrimPrefix(conn[len("sqlite:"):], "//"), NewSQLiteRepositoryManager())
	case "file":
		return openSQL(ctx, "sqlite", conn, NewSQLiteRepositoryManager())
	case "s3":
		return openS3(ctx, conn, opts)
	case "redis", "rediss":
		return openRedis(conn, opts)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedScheme, Scheme(conn))
	}
}

func openMemory(conn string) documents.Repository {
	name := strings.TrimPrefix(strings.TrimPrefix(conn[len("memory:"):], "//"), "/")
	if name == "" {
		return documents.NewInMemoryRepository()
	}

	memoryMu.Lock()
	defer memoryMu.Unlock()
	r, ok := memoryStores[name]
	if !ok {
		r = documents.NewInMemoryRepository()
		memoryStores[name] = r
	}
	return r
}

func openSQL(ctx context.Context, driver, dsn string, m RepositoryManager) (documents.Repository, error) {
	if driver == "sqlite" {
		if p := filex.SQLitePath(dsn); p != "" {
			if err := filex.EnsureParentDir(p); err != nil {
				return nil, fmt.Errorf("db open error: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == "sqlite" {
		// every pooled connection to ":memory:" would be a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m.Documents(db), nil
}

func openS3(ctx context.Context, conn string, opts Options) (documents.Repository, error) {
	u, err := url.Parse(conn)
	if err != nil {
		return nil, fmt.Errorf("parse s3 identifier: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: s3 identifier needs a bucket", common.ErrInvalidArgument)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.S3Region))
	}
	if opts.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.S3AccessKey, opts.S3SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if opts.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return documents.NewS3Repository(client, u.Host, strings.Trim(u.Path, "/")), nil
}

func openRedis(conn string, opts Options) (documents.Repository, error) {
	ro, err := redis.ParseURL(conn)
	if err != nil {
		return nil, fmt.Errorf("parse redis identifier: %w", err)
	}
	if opts.RedisPassword != "" {
		ro.Password = opts.RedisPassword
	}
	return documents.NewRedisRepository(redis.NewClient(ro), ""), nil
}
