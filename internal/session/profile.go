package session

import (
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
)

// AddressUpdate maps an address onto the profile fields of the backend user record.
func AddressUpdate(a types.Address) strapi.UserUpdate {
	a = a.Normalize()
	return strapi.UserUpdate{
		FullName:     &a.FullName,
		Phone:        &a.Phone,
		AddressLine1: &a.Line1,
		AddressLine2: &a.Line2,
		City:         &a.City,
		State:        &a.State,
		Pin:          &a.Pincode,
		Landmark:     &a.Landmark,
	}
}
