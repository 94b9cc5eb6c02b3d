package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCountry = "IT"

// FreeShippingThreshold is the subtotal from which every method is free.
var FreeShippingThreshold = decimal.NewFromInt(70)

type Destination struct {
	Address    string
	City       string
	Province   string
	PostalCode string
	Country    string
}

func (d Destination) complete() bool {
	for _, v := range []string{d.Address, d.City, d.Province, d.PostalCode} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (d Destination) country() string {
	if country := strings.ToUpper(strings.TrimSpace(d.Country)); country != "" {
		return country
	}
	return DefaultCountry
}

type Method struct {
	ID     string
	Name   string
	Amount decimal.Decimal
}

// Quote holds the methods in provider order; the first one is the default.
type Quote struct {
	FreeShipping bool
	Amount       decimal.Decimal
	Currency     string
	MethodID     string
	MethodName   string
	Methods      []Method
}

// Method returns the method with the given id, or the default one.
func (q Quote) Method(id string) Method {
	for _, m := range q.Methods {
		if m.ID == id {
			return m
		}
	}
	return Method{ID: q.MethodID, Name: q.MethodName, Amount: q.Amount}
}
