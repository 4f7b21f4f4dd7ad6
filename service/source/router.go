package source

import (
	"context"

	"golang.org/x/xerrors"
)

type routerService struct {
	routes map[string]IService
}

// NewRouter dispatches each reference to the service registered for its scheme
func NewRouter(routes map[string]IService) IService {
	r := map[string]IService{}
	for scheme, svc := range routes {
		if svc != nil {
			r[scheme] = svc
		}
	}
	return &routerService{
		routes: r,
	}
}

func (svc *routerService) Exists(ctx context.Context, ref string) (bool, error) {
	scheme := Scheme(ref)
	route, ok := svc.routes[scheme]
	if !ok {
		return false, xerrors.Errorf("%q: %w", scheme, ErrUnsupportedScheme)
	}

	return route.Exists(ctx, ref)
}
