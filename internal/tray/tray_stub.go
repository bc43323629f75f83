//go:build !cgo
// +build !cgo

package tray

import (
	"context"

	"github.com/example/appmenu/internal/menu"
)

// Controller is a no-op without cgo.
type Controller struct{}

// New returns a controller that cannot be shown.
func New(*menu.Tree, Options) *Controller {
	return &Controller{}
}

// Run returns ErrUnavailable.
func (c *Controller) Run(context.Context) error {
	return ErrUnavailable
}
