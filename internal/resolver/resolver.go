// Package resolver turns an enqueued URL into something the processor
// can download: either a source URL for the external download tool or a
// finished file the resolver produced itself. Each service has its own
// fallback chain; failures inside a chain move to the next branch, and
// only the last branch's error reaches the job.
package resolver

import (
	"context"
	"fmt"

	apperrors "github.com/hasod/hasod-go/internal/errors"
	"github.com/hasod/hasod-go/internal/queue"
)

// ReportFunc lets a resolver surface intermediate progress to the job.
type ReportFunc func(progress float64, message string)

// Resolution is the outcome of a successful resolve.
type Resolution struct {
	// Metadata is the resolved track information. Always populated,
	// at least partially, so the organizer can build a path.
	Metadata queue.TrackMetadata
	// SourceURL is the URL the generic download subprocess should
	// fetch. Empty when the resolver already produced the file.
	SourceURL string
	// OutputPath is set when the resolver wrote the finished file
	// itself (the direct provider path).
	OutputPath string
}

// Resolver resolves one service's URLs.
type Resolver interface {
	Resolve(ctx context.Context, job *queue.DownloadJob, report ReportFunc) (*Resolution, error)
}

// Registry maps services to their resolvers.
type Registry struct {
	resolvers map[queue.Service]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[queue.Service]Resolver)}
}

// Register installs a resolver for a service.
func (r *Registry) Register(service queue.Service, resolver Resolver) {
	r.resolvers[service] = resolver
}

// For returns the resolver for a service. Services without one get a
// resolver that fails immediately with an unsupported-service error.
func (r *Registry) For(service queue.Service) Resolver {
	if resolver, ok := r.resolvers[service]; ok {
		return resolver
	}
	return unsupportedResolver{service: service}
}

// unsupportedResolver rejects every URL for services the engine cannot
// download from (Deezer, Tidal, unrecognized domains).
type unsupportedResolver struct {
	service queue.Service
}

func (u unsupportedResolver) Resolve(ctx context.Context, job *queue.DownloadJob, report ReportFunc) (*Resolution, error) {
	return nil, apperrors.NewUnsupportedError(
		fmt.Sprintf("%s downloads are not supported", u.service.DisplayName()))
}
