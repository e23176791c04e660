package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/papercomputeco/docrag/pkg/vector"
	"github.com/papercomputeco/docrag/pkg/vector/chroma"
	"github.com/papercomputeco/docrag/pkg/vector/chromem"
	"github.com/papercomputeco/docrag/pkg/vector/pgvector"
	"github.com/papercomputeco/docrag/pkg/vector/qdrant"
	"github.com/papercomputeco/docrag/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	// ProviderType is one of sqlite, chroma, qdrant, pgvector or chromem.
	ProviderType string

	// Target is the provider location: a file path for sqlite, a URL for
	// chroma, host:port for qdrant, a DSN for pgvector and a directory for
	// chromem (empty keeps chromem in memory).
	Target string

	Collection string
	APIKey     string
	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case "qdrant":
		host, port, err := splitHostPort(o.Target)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "pgvector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.Target,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chromem":
		return chromem.NewDriver(chromem.Config{
			Path:           o.Target,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// splitHostPort parses a qdrant target. An empty target or a missing port
// leaves the driver defaults in place.
func splitHostPort(target string) (string, int, error) {
	if target == "" {
		return "", 0, nil
	}
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, 0, nil //nolint:nilerr // bare host
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}
