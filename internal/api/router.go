package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/photostore"
)

// NewRouter creates the API router with all endpoints registered. Ledger
// operations are authorized by the ledger itself against the caller's
// username; the router only requires a valid token. A nil photos keeps item
// photos in db.
func NewRouter(db *sql.DB, l *ledger.Ledger, photos photostore.Store, jwtSecret string, tokenTTL time.Duration) http.Handler {
	if photos == nil {
		photos = photostore.NewDB(db)
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{
		DB:        db,
		JWTSecret: jwtSecret,
		TokenTTL:  tokenTTL,
		throttle:  newLoginThrottle(time.Minute, 5),
	}
	accountsHandler := &AccountsHandler{DB: db, Ledger: l}
	rolesHandler := &RolesHandler{Ledger: l}
	itemsHandler := &ItemsHandler{Ledger: l, Photos: photos}
	eventsHandler := &EventsHandler{Ledger: l}

	authMW := AuthMiddleware(jwtSecret, db)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(RequireAdmin(h)) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Accounts (admin only).
	mux.Handle("GET /api/accounts", admin(accountsHandler.List))
	mux.Handle("POST /api/accounts", admin(accountsHandler.Create))
	mux.Handle("GET /api/accounts/{username}", admin(accountsHandler.Get))
	mux.Handle("PUT /api/accounts/{username}/password", admin(accountsHandler.ResetPassword))
	mux.Handle("DELETE /api/accounts/{username}", admin(accountsHandler.Delete))

	// Roles.
	mux.Handle("POST /api/roles", authed(rolesHandler.Grant))
	mux.Handle("GET /api/roles/{role}/{identity}", authed(rolesHandler.Has))
	mux.Handle("GET /api/identities/{identity}/roles", authed(rolesHandler.List))

	// Items: lifecycle.
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", authed(itemsHandler.Harvest))
	mux.Handle("POST /api/items/{upc}/process", authed(itemsHandler.transition(l.ProcessItem)))
	mux.Handle("POST /api/items/{upc}/pack", authed(itemsHandler.transition(l.PackItem)))
	mux.Handle("POST /api/items/{upc}/sell", authed(itemsHandler.Sell))
	mux.Handle("POST /api/items/{upc}/buy", authed(itemsHandler.Buy))
	mux.Handle("POST /api/items/{upc}/ship", authed(itemsHandler.transition(l.ShipItem)))
	mux.Handle("POST /api/items/{upc}/receive", authed(itemsHandler.transition(l.ReceiveItem)))
	mux.Handle("POST /api/items/{upc}/purchase", authed(itemsHandler.transition(l.PurchaseItem)))

	// Items: reads.
	mux.Handle("GET /api/items/{upc}", authed(itemsHandler.Get))
	mux.Handle("GET /api/items/{upc}/view/1", authed(itemsHandler.ViewOne))
	mux.Handle("GET /api/items/{upc}/view/2", authed(itemsHandler.ViewTwo))
	mux.Handle("GET /api/items/{upc}/owner", authed(field("owner_id", l.ItemOwner)))
	mux.Handle("GET /api/items/{upc}/state", authed(field("item_state", l.ItemState)))
	mux.Handle("GET /api/items/{upc}/price", authed(field("product_price", l.ItemPrice)))
	mux.Handle("GET /api/items/{upc}/distributor", authed(field("distributor_id", l.ItemDistributor)))
	mux.Handle("GET /api/items/{upc}/retailer", authed(field("retailer_id", l.ItemRetailer)))
	mux.Handle("GET /api/items/{upc}/consumer", authed(field("consumer_id", l.ItemConsumer)))
	mux.Handle("GET /api/items/{upc}/events", authed(itemsHandler.Events))
	mux.Handle("GET /api/items/{upc}/payments", authed(itemsHandler.Payments))
	mux.Handle("PUT /api/items/{upc}/photo", authed(itemsHandler.UploadPhoto))
	mux.Handle("GET /api/items/{upc}/photo", authed(itemsHandler.GetPhoto))

	// Event log.
	mux.Handle("GET /api/events", authed(eventsHandler.List))
	mux.Handle("GET /api/events/verify", authed(eventsHandler.Verify))

	return mux
}
