package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"ontodraft/internal/inherit"
	"ontodraft/internal/overlay"
	"ontodraft/internal/rebase"
	"ontodraft/internal/shape"
	"ontodraft/internal/store"
	"ontodraft/internal/validate"
)

type Server struct {
	db        store.Store
	overlay   *overlay.Engine
	resolver  *inherit.Resolver
	validator *validate.Engine
	rebaser   *rebase.Engine
	mcp       *sdk.Server
}

func NewServer(db store.Store, checker shape.Checker, maxDepth int, version string) *Server {
	ov := overlay.NewEngine(db)
	resolver := inherit.NewResolver(db, ov, maxDepth)

	s := &Server{
		db:        db,
		overlay:   ov,
		resolver:  resolver,
		validator: validate.NewEngine(db, ov, resolver, checker),
		rebaser:   rebase.NewEngine(db),
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "ontodraft",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
