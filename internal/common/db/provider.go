package db

import "fmt"

// Provider returns the current database instance.
type Provider interface {
	Current() Database
}

// StaticProvider always returns the same database instance.
type StaticProvider struct {
	db Database
}

func NewStaticProvider(database Database) *StaticProvider {
	return &StaticProvider{db: database}
}

func (p *StaticProvider) Current() Database {
	if p == nil {
		return nil
	}
	return p.db
}

// CurrentDatabase fetches the current database instance from provider.
func CurrentDatabase(provider Provider) (Database, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is nil")
	}
	database := provider.Current()
	if database == nil {
		return nil, fmt.Errorf("database is nil")
	}
	return database, nil
}
