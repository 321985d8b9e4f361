package interfaces

import "encoding/json"

// DriverUserView is the projection of a user handed to a driver. It only
// contains connections bound to DriverID and shares no memory with the record.
type DriverUserView struct {
	Address       string
	BucketAddress string
	DriverID      string
	Connections   map[string]ConnectionView
}

// ConnectionView is the projection of a single connection handed to a driver.
type ConnectionView struct {
	ID            string
	UserAddress   string
	BucketAddress string
	Driver        string
	Name          string
	Config        json.RawMessage
	Buckets       []string
}

// SafeForDriver builds the view of u scoped to driverID.
func (u *User) SafeForDriver(driverID string) DriverUserView {
	view := DriverUserView{
		Address:       u.Address,
		BucketAddress: u.InternalBucketAddress,
		DriverID:      driverID,
		Connections:   map[string]ConnectionView{},
	}
	for id, conn := range u.Connections {
		if conn == nil || conn.Driver != driverID {
			continue
		}
		view.Connections[id] = u.connectionView(id, conn)
	}
	return view
}

// SafeForConnection builds the view of one connection of u.
func (u *User) SafeForConnection(connID string) (ConnectionView, bool) {
	conn, ok := u.Connections[connID]
	if !ok || conn == nil {
		return ConnectionView{}, false
	}
	return u.connectionView(connID, conn), true
}

func (u *User) connectionView(id string, conn *Connection) ConnectionView {
	return ConnectionView{
		ID:            id,
		UserAddress:   u.Address,
		BucketAddress: u.InternalBucketAddress,
		Driver:        conn.Driver,
		Name:          conn.Name,
		Config:        cloneRaw(conn.Config),
		Buckets:       append([]string(nil), conn.Buckets...),
	}
}
