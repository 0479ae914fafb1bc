package main

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/noah-isme/sims-api/internal/handler"
	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/repository"
	"github.com/noah-isme/sims-api/pkg/config"
	"github.com/noah-isme/sims-api/pkg/database"
)

// documentStore bundles the two collections and the unit of work of one driver.
type documentStore struct {
	driver    string
	students  repository.Collection[models.Student]
	schedules repository.Collection[models.ClassSchedule]
	tx        repository.Transactor
	ready     handler.ReadinessCheck
	close     func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*documentStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		return openPostgresStore(ctx, cfg)
	case config.StoreDriverMongo:
		return openMongoStore(ctx, cfg)
	case config.StoreDriverBolt:
		return openBoltStore(cfg)
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

func openPostgresStore(ctx context.Context, cfg *config.Config) (*documentStore, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	students, err := repository.NewPostgresCollection[models.Student](db, repository.StudentsCollection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	schedules, err := repository.NewPostgresCollection[models.ClassSchedule](db, repository.SchedulesCollection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, ensure := range []func(context.Context) error{students.EnsureSchema, schedules.EnsureSchema} {
		if err := ensure(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	var tx repository.Transactor = repository.NoopTransactor{}
	if cfg.Store.Transactions {
		tx = repository.NewPostgresTransactor(db)
	}
	return &documentStore{
		driver:    config.StoreDriverPostgres,
		students:  students,
		schedules: schedules,
		tx:        tx,
		ready:     db.PingContext,
		close:     db.Close,
	}, nil
}

func openMongoStore(ctx context.Context, cfg *config.Config) (*documentStore, error) {
	client, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	disconnect := func() error { return client.Disconnect(context.Background()) }

	db := client.Database(cfg.Mongo.Database)
	students, err := repository.NewMongoCollection[models.Student](db, repository.StudentsCollection)
	if err != nil {
		_ = disconnect()
		return nil, err
	}
	schedules, err := repository.NewMongoCollection[models.ClassSchedule](db, repository.SchedulesCollection)
	if err != nil {
		_ = disconnect()
		return nil, err
	}
	for _, ensure := range []func(context.Context) error{students.EnsureIndexes, schedules.EnsureIndexes} {
		if err := ensure(ctx); err != nil {
			_ = disconnect()
			return nil, err
		}
	}

	var tx repository.Transactor = repository.NoopTransactor{}
	if cfg.Store.Transactions {
		// multi-document transactions need a replica set
		tx = repository.NewMongoTransactor(client)
	}
	return &documentStore{
		driver:    config.StoreDriverMongo,
		students:  students,
		schedules: schedules,
		tx:        tx,
		ready: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: disconnect,
	}, nil
}

func openBoltStore(cfg *config.Config) (*documentStore, error) {
	db, err := database.NewBolt(cfg.Bolt)
	if err != nil {
		return nil, err
	}
	students, err := repository.NewBoltCollection[models.Student](db, repository.StudentsCollection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	schedules, err := repository.NewBoltCollection[models.ClassSchedule](db, repository.SchedulesCollection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var tx repository.Transactor = repository.NoopTransactor{}
	if cfg.Store.Transactions {
		tx = repository.NewBoltTransactor(db)
	}
	return &documentStore{
		driver:    config.StoreDriverBolt,
		students:  students,
		schedules: schedules,
		tx:        tx,
		ready: func(context.Context) error {
			return db.View(func(*bbolt.Tx) error { return nil })
		},
		close: db.Close,
	}, nil
}
