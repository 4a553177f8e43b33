package api

// ProductSort values accepted by the catalog listing endpoint.
type ProductSort string

const (
	SortCreatedAtDesc ProductSort = "created_at_desc"
	SortCreatedAtAsc  ProductSort = "created_at_asc"
)

// Page limits enforced by the backend.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageMeta carries the opaque cursor to the next page. An empty/absent
// NextCursor means the page is the last one. Cursors are passed back
// verbatim, never inspected or compared.
type PageMeta struct {
	NextCursor string `json:"nextCursor,omitempty"`
}

// ProductPage is the paginated envelope for product listings.
type ProductPage struct {
	Data []Product `json:"data"`
	Meta PageMeta  `json:"meta"`
}

// OrderPage is the paginated envelope for order listings.
type OrderPage struct {
	Data []Order  `json:"data"`
	Meta PageMeta `json:"meta"`
}

// ProductListParams are the query parameters for the product listing.
type ProductListParams struct {
	Limit  int
	Cursor string
	Sort   ProductSort
}

// OrderListParams are the query parameters for the order listing.
type OrderListParams struct {
	Limit  int
	Cursor string
}
