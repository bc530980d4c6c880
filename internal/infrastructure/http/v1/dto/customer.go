package dto

import (
	"medstock/internal/core/types"
	"medstock/internal/domain/catalogs/customer"
)

// --- Request DTOs ---

// CreateCustomerRequest is the request body for creating a customer.
type CreateCustomerRequest struct {
	Code    string  `json:"code"`
	Name    string  `json:"name" binding:"required"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Comment *string `json:"comment"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateCustomerRequest) ToEntity() *customer.Customer {
	item := customer.NewCustomer(r.Code, r.Name)
	item.Phone = r.Phone
	item.Email = r.Email
	item.Address = r.Address
	item.Comment = r.Comment
	return item
}

// UpdateCustomerRequest is the request body for updating a customer.
type UpdateCustomerRequest struct {
	Code    string  `json:"code"`
	Name    string  `json:"name" binding:"required"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Comment *string `json:"comment"`
	Version int     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateCustomerRequest) ApplyTo(item *customer.Customer) {
	item.Code = r.Code
	item.Name = r.Name
	item.Phone = r.Phone
	item.Email = r.Email
	item.Address = r.Address
	item.Comment = r.Comment
	item.Version = r.Version
}

// --- Response DTOs ---

// CustomerResponse is the response body for a customer.
type CustomerResponse struct {
	CatalogResponse
	Phone         *string   `json:"phone,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Address       *string   `json:"address,omitempty"`
	LifetimeTotal types.VND `json:"lifetimeTotal"`
	Comment       *string   `json:"comment,omitempty"`
}

// FromCustomer converts domain entity to response DTO.
func FromCustomer(item *customer.Customer) *CustomerResponse {
	return &CustomerResponse{
		CatalogResponse: FromCatalog(item.Catalog),
		Phone:           item.Phone,
		Email:           item.Email,
		Address:         item.Address,
		LifetimeTotal:   item.LifetimeTotal,
		Comment:         item.Comment,
	}
}
