package inject

import (
	"context"

	"go.viam.com/splatview/descriptor"
	"go.viam.com/splatview/sensor/orientation"
)

// DescriptorLookup is an injected descriptor lookup.
type DescriptorLookup struct {
	descriptor.Lookup
	ResolveFunc func(ctx context.Context, id string) (descriptor.Descriptor, error)
}

// Resolve calls the injected Resolve or the real version.
func (l *DescriptorLookup) Resolve(ctx context.Context, id string) (descriptor.Descriptor, error) {
	if l.ResolveFunc == nil {
		return l.Lookup.Resolve(ctx, id)
	}
	return l.ResolveFunc(ctx, id)
}

// OrientationSource is an injected orientation source.
type OrientationSource struct {
	orientation.Source
	SubscribeFunc func(ctx context.Context, handler orientation.Handler) (orientation.Subscription, error)
}

// Subscribe calls the injected Subscribe or the real version.
func (s *OrientationSource) Subscribe(
	ctx context.Context,
	handler orientation.Handler,
) (orientation.Subscription, error) {
	if s.SubscribeFunc == nil {
		return s.Source.Subscribe(ctx, handler)
	}
	return s.SubscribeFunc(ctx, handler)
}

// Subscription is an injected orientation subscription. Close does nothing unless injected.
type Subscription struct {
	CloseFunc func() error
}

// Close calls the injected Close.
func (s *Subscription) Close() error {
	if s.CloseFunc == nil {
		return nil
	}
	return s.CloseFunc()
}
