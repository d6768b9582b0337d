package msg

import "github.com/dc-labs/bgpd/internal/wire"

// RouteRefreshSubtype distinguishes a plain request from the Enhanced
// Route Refresh begin/end-of-route-refresh markers (RFC 7313).
type RouteRefreshSubtype uint8

const (
	RouteRefreshNormal RouteRefreshSubtype = 0
	RouteRefreshBegin  RouteRefreshSubtype = 1
	RouteRefreshEnd    RouteRefreshSubtype = 2
)

// RouteRefresh (RFC 2918) asks a peer to resend its Adj-RIB-Out for one
// family; it carries no attributes or NLRI.
type RouteRefresh struct {
	Family  wire.Family
	Subtype RouteRefreshSubtype
}

func (r RouteRefresh) Pack() []byte {
	body := []byte{
		byte(r.Family.AFI >> 8), byte(r.Family.AFI),
		byte(r.Subtype),
		byte(r.Family.SAFI),
	}
	return append(PackHeader(TypeRouteRefresh, len(body)), body...)
}

func UnpackRouteRefresh(body []byte, offset int) (RouteRefresh, error) {
	if len(body) != 4 {
		return RouteRefresh{}, badFormat(offset, "route-refresh message must be 4 bytes")
	}
	f := wire.Family{AFI: wire.AFI(int(body[0])<<8 | int(body[1])), SAFI: wire.SAFI(body[3])}
	return RouteRefresh{Family: f, Subtype: RouteRefreshSubtype(body[2])}, nil
}
