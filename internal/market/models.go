package market

// Price is a listing price in its native currency. Amount stays a decimal
// string until conversion so fiat amounts never pick up float noise.
type Price struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Frequency string `json:"frequency,omitempty"`
}

// Product is a validated classified listing. Immutable after parsing except
// for the one-time Seller enrichment.
type Product struct {
	ID          string         `json:"id"`
	Pubkey      string         `json:"pubkey"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Content     string         `json:"content"`
	Images      []string       `json:"images"`
	Price       Price          `json:"price"`
	Location    string         `json:"location,omitempty"`
	PublishedAt int64          `json:"publishedAt"`
	Naddr       string         `json:"naddr"`
	Tags        []string       `json:"tags"`
	Seller      *SellerProfile `json:"seller,omitempty"`
}

// SellerProfile is kind-0 profile metadata. Npub is always present, derived
// from the bare key when the profile lookup fails.
type SellerProfile struct {
	Pubkey      string `json:"pubkey"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	About       string `json:"about,omitempty"`
	NIP05       string `json:"nip05,omitempty"`
	Npub        string `json:"npub"`
}

// CartItem pairs a product with a quantity ≥ 1.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// ShippingZone is one shipping option in a stall.
type ShippingZone struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Cost    float64  `json:"cost"`
	Regions []string `json:"regions"`
}

// Stall is a seller's shop configuration (kind 30017).
type Stall struct {
	ID          string         `json:"id"`
	Pubkey      string         `json:"pubkey"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Currency    string         `json:"currency"`
	Shipping    []ShippingZone `json:"shipping"`
}

// OrderLine is one product line inside a per-seller order. SatsAmount is the
// per-unit price converted to sats at aggregation time.
type OrderLine struct {
	Product    Product `json:"product"`
	Quantity   int     `json:"quantity"`
	SatsAmount int64   `json:"satsAmount"`
}

// SellerOrder is the per-seller view of the cart. Derived on demand, never
// stored. ShippingSats/TotalSats are a display estimate only; the
// authoritative shipping cost comes from the zone chosen at checkout.
type SellerOrder struct {
	SellerPubkey  string      `json:"sellerPubkey"`
	SellerName    string      `json:"sellerName"`
	SellerPicture string      `json:"sellerPicture,omitempty"`
	Items         []OrderLine `json:"items"`
	SubtotalSats  int64       `json:"subtotalSats"`
	ShippingSats  int64       `json:"shippingSats"`
	TotalSats     int64       `json:"totalSats"`
}

// GrandTotal sums across all seller orders.
type GrandTotal struct {
	SubtotalSats int64 `json:"subtotalSats"`
	ShippingSats int64 `json:"shippingSats"`
	TotalSats    int64 `json:"totalSats"`
}

// SellerMeta is a static fallback for known sellers, consulted only when the
// profile lookup yields nothing.
type SellerMeta struct {
	Name      string
	Specialty string
	Npub      string
}

// SellerMetadata keys known sellers by pubkey.
var SellerMetadata = map[string]SellerMeta{
	"d887f1a249412f06d7c043d70aca17d326ba0d26ddfa1793d7bab5a141737412": {
		Name:      "Gini3D",
		Specialty: "Cute & Colorful Prints",
	},
	"211f325b5396968ac0c79b7c0a030d768206d32ac61f93f143de112b859bd46f": {
		Name:      "Robotechy",
		Specialty: "Bitcoin Hardware & 3D Prints",
		Npub:      "npub1yy0nyk6nj6tg4sx8nd7q5qcdw6pqd5e2cc0e8u2rmcgjhpvm63hsk67xe5",
	},
}
