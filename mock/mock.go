// Package mock is used to generate mock files for testing.
package mock

//go:generate mockgen -source ../idp/idp_iface.go -destination mock_idp/mock_idp_iface.go
//go:generate mockgen -source ../users/users.go -destination mock_users/mock_users.go
