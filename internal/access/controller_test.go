package access_test

import (
	"errors"
	"testing"

	"github.com/vim-labs/burni-tokens/internal/access"
	"github.com/vim-labs/burni-tokens/internal/asset"
)

var (
	admin    = asset.MustParseAddress("0x0000000000000000000000000000000000000001")
	next     = asset.MustParseAddress("0x0000000000000000000000000000000000000002")
	stranger = asset.MustParseAddress("0x0000000000000000000000000000000000000003")
)

func TestController_InitialState(t *testing.T) {
	c := access.New(admin, "https://burni.co/nft/")
	if c.PaymentAddress() != admin {
		t.Errorf("payment address: got %s, want %s", c.PaymentAddress(), admin)
	}
	if c.BaseTokenURI() != "https://burni.co/nft/" {
		t.Errorf("base uri: got %q", c.BaseTokenURI())
	}
}

func TestController_RotatePaymentAddress(t *testing.T) {
	c := access.New(admin, "")

	if err := c.UpdatePaymentAddress(admin, next); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if c.PaymentAddress() != next {
		t.Errorf("after rotation: got %s, want %s", c.PaymentAddress(), next)
	}

	// The old administrator has no power after rotation.
	err := c.UpdatePaymentAddress(admin, stranger)
	if !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("old admin rotate: got %v, want ErrUnauthorized", err)
	}

	// The new one does.
	if err := c.UpdatePaymentAddress(next, admin); err != nil {
		t.Fatalf("new admin rotate: %v", err)
	}
	if c.PaymentAddress() != admin {
		t.Errorf("after second rotation: got %s, want %s", c.PaymentAddress(), admin)
	}
}

func TestController_RotateUnauthorized(t *testing.T) {
	c := access.New(admin, "")
	err := c.UpdatePaymentAddress(stranger, stranger)
	if !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
	if c.PaymentAddress() != admin {
		t.Error("rejected rotation must not change the payment address")
	}
}

func TestController_UpdateBaseTokenURI(t *testing.T) {
	c := access.New(admin, "https://old.example/")

	if err := c.UpdateBaseTokenURI(admin, "https://new.example/"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.BaseTokenURI() != "https://new.example/" {
		t.Errorf("base uri: got %q", c.BaseTokenURI())
	}

	err := c.UpdateBaseTokenURI(stranger, "https://evil.example/")
	if !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
	if c.BaseTokenURI() != "https://new.example/" {
		t.Error("rejected update must not change the base uri")
	}
}
