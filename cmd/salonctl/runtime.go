package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
	"github.com/onglesrivieres/salon360-sub000/internal/importer"
	"github.com/onglesrivieres/salon360-sub000/internal/platform/cache"
	"github.com/onglesrivieres/salon360-sub000/internal/platform/db"
)

// runtime opens connections lazily so each command only dials what it uses.
type runtime struct {
	stdout io.Writer
	pool   *pgxpool.Pool
	redis  *redis.Client
	jobs   *JobsCLI
}

func (r *runtime) postgres(c *cli.Context) (*pgxpool.Pool, error) {
	if r.pool == nil {
		pool, err := db.New(c.Context, c.String("pg-dsn"), db.PoolOptions{MaxConns: 2})
		if err != nil {
			return nil, err
		}
		r.pool = pool
	}
	return r.pool, nil
}

func (r *runtime) redisClient(c *cli.Context) (*redis.Client, error) {
	if r.redis == nil {
		client, err := cache.New(c.Context, c.String("redis-addr"))
		if err != nil {
			return nil, err
		}
		r.redis = client
	}
	return r.redis, nil
}

func (r *runtime) queue(c *cli.Context) *JobsCLI {
	if r.jobs == nil {
		r.jobs = NewJobsCLI(cache.QueueOpt(c.String("redis-addr")))
	}
	return r.jobs
}

func (r *runtime) close(*cli.Context) error {
	var errs []error
	if r.jobs != nil {
		errs = append(errs, r.jobs.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return errors.Join(errs...)
}

func (r *runtime) importFile(c *cli.Context, schema string) error {
	opts, err := parseImportOptions(c, schema)
	if err != nil {
		return err
	}
	req, err := readRequest(opts)
	if err != nil {
		return err
	}
	if opts.Async {
		info, err := r.queue(c).EnqueueImport(c.Context, req)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.stdout, "queued run %s (task %s)\n", req.RunID, info.ID)
		return err
	}

	pool, err := r.postgres(c)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	service := importer.NewService(catalog.NewRepository(pool), importer.ServiceConfig{},
		importer.LogNotifier{Logger: logger}, nil, logger)
	return runImport(c.Context, service, req, opts, r.stdout)
}

func (r *runtime) migrate(c *cli.Context) error {
	pool, err := r.postgres(c)
	if err != nil {
		return err
	}
	applied, err := db.Migrate(c.Context, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		_, err = fmt.Fprintln(r.stdout, "schema up to date")
		return err
	}
	for _, name := range applied {
		if _, err := fmt.Fprintf(r.stdout, "applied %s\n", filepath.Base(name)); err != nil {
			return err
		}
	}
	return nil
}

func (r *runtime) inspectQueue(c *cli.Context) error {
	stats, err := r.queue(c).InspectQueue(c.Context)
	if err != nil {
		return err
	}
	return printQueueStats(r.stdout, stats)
}

func (r *runtime) listFailed(c *cli.Context) error {
	tasks, err := r.queue(c).ListFailed(c.Context, c.Int("size"))
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if _, err := fmt.Fprintf(r.stdout, "%s\t%s\t%s\n", task.ID, task.Type, strings.TrimSpace(task.LastErr)); err != nil {
			return err
		}
	}
	return nil
}

func (r *runtime) runStatus(c *cli.Context) error {
	runID, err := uuid.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("salonctl: run id: %w", err)
	}
	client, err := r.redisClient(c)
	if err != nil {
		return err
	}
	status, err := importer.NewStatusStore(client, 0).Get(c.Context, runID)
	if err != nil {
		return err
	}
	return printRunStatus(r.stdout, status)
}
