package access

import (
	"github.com/vim-labs/burni-tokens/internal/asset"
)

// Controller owns the administrative configuration shared by the registry:
// the administrator ("payment") address and the base token locator. The
// registry holds a single *Controller handle; the values are never copied
// elsewhere, so a mint always observes the administrator at mint time.
type Controller struct {
	payment     asset.Address
	baseLocator string
}

// New creates a controller with the deployer as first administrator.
func New(admin asset.Address, baseLocator string) *Controller {
	return &Controller{
		payment:     admin,
		baseLocator: baseLocator,
	}
}

// PaymentAddress returns the current administrator, the fee recipient for
// every mint.
func (c *Controller) PaymentAddress() asset.Address {
	return c.payment
}

// BaseTokenURI returns the shared mutable base locator.
func (c *Controller) BaseTokenURI() string {
	return c.baseLocator
}

// UpdatePaymentAddress rotates the administrator. Only the current
// administrator may call it.
func (c *Controller) UpdatePaymentAddress(caller, next asset.Address) error {
	if caller != c.payment {
		return asset.ErrUnauthorized
	}
	c.payment = next
	return nil
}

// UpdateBaseTokenURI replaces the base locator. Only the current
// administrator may call it.
func (c *Controller) UpdateBaseTokenURI(caller asset.Address, locator string) error {
	if caller != c.payment {
		return asset.ErrUnauthorized
	}
	c.baseLocator = locator
	return nil
}

// Restore overwrites controller state from a snapshot.
func (c *Controller) Restore(payment asset.Address, baseLocator string) {
	c.payment = payment
	c.baseLocator = baseLocator
}
