package messages

import (
	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/auth"
	"github.com/freshcart/basket/internal/cache"
)

// View transition messages.
type (
	OpenLoginMsg    struct{}
	OpenRegisterMsg struct{}
	OpenScanMsg     struct{}
	OpenProductMsg  struct{ ProductID int }
	OpenAlertsMsg   struct{}
	GoBackMsg       struct{}
	ShowHelpMsg     struct{}
)

// Data messages.
type (
	// SessionChangedMsg carries every transition published by the session
	// manager, in order.
	SessionChangedMsg struct {
		Session auth.Session
	}

	AuthResultMsg struct {
		Op      auth.Op
		Session auth.Session
		Err     error
	}

	WatchlistLoadedMsg struct {
		Items []cache.WatchedProduct
		Err   error
	}

	ProductLoadedMsg struct {
		Product *api.Product
		Watched bool
		Err     error
	}

	WatchToggledMsg struct {
		ProductID int
		Watched   bool
		Err       error
	}

	AlertsLoadedMsg struct {
		Alerts []cache.PriceAlert
		Err    error
	}

	PriceAlertMsg struct {
		UnreadCount int
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)
