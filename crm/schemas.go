// ABOUTME: Storage collections and UI-to-storage field tables for every CRM entity
// ABOUTME: Tables are bound to the model structs once, at package init
package crm

import (
	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
	"github.com/harperreed/pagen-admin/schema"
	"github.com/harperreed/pagen-admin/store"
)

// Storage collection names.
const (
	ContactsCollection     = "contact_c"
	CompaniesCollection    = "company_c"
	DealsCollection        = "deal_c"
	QuotesCollection       = "quotes_c"
	TransactionsCollection = "transaction_c"
	ActivitiesCollection   = "activity_c"
)

// Collections lists every storage collection in page order.
var Collections = []string{
	ContactsCollection,
	CompaniesCollection,
	DealsCollection,
	QuotesCollection,
	TransactionsCollection,
	ActivitiesCollection,
}

func audit() []schema.Field {
	return []schema.Field{{UI: entity.CreatedAtField}, {UI: entity.UpdatedAtField}}
}

var contactCodec = entity.MustCodec[models.Contact](schema.MustNew(ContactsCollection, "name",
	append([]schema.Field{
		{UI: "name", Storage: store.NameField},
		{UI: "email"},
		{UI: "phone"},
		{UI: "company"},
		{UI: "companyId"},
		{UI: "lastContactDate"},
		{UI: "notes"},
	}, audit()...)...,
))

var companyCodec = entity.MustCodec[models.Company](schema.MustNew(CompaniesCollection, "name",
	append([]schema.Field{
		{UI: "name", Storage: store.NameField},
		{UI: "industry"},
		{UI: "address"},
		{UI: "notes"},
		{UI: "contactCount"},
		{UI: "totalDealValue"},
		{UI: "lastActivityDate"},
	}, audit()...)...,
))

var dealCodec = entity.MustCodec[models.Deal](schema.MustNew(DealsCollection, "title",
	append([]schema.Field{
		{UI: "title"},
		{UI: "contactId", LookupName: "contactName"},
		{UI: "contactName"},
		{UI: "company"},
		{UI: "value"},
		{UI: "expectedCloseDate"},
		{UI: "status"},
		{UI: "stage"},
		{UI: "probability"},
		{UI: "description"},
		{UI: "source"},
		{UI: "assignedTo"},
		{UI: "stageChangedAt"},
		{UI: "activities", Encoded: true},
	}, audit()...)...,
))

var quoteCodec = entity.MustCodec[models.Quote](schema.MustNew(QuotesCollection, "name",
	append([]schema.Field{
		{UI: "name", Storage: store.NameField},
		{UI: "quoteNumber"},
		{UI: "customerId", LookupName: "customerName"},
		{UI: "customerName"},
		{UI: "contactId", LookupName: "contactName"},
		{UI: "contactName"},
		{UI: "status"},
		{UI: "totalAmount"},
		{UI: "currency"},
		{UI: "expirationDate"},
		{UI: "validUntil"},
		{UI: "notes"},
		{UI: "termsAndConditions"},
		{UI: "discount"},
		{UI: "taxAmount"},
		{UI: "isApproved"},
		{UI: "approvalDate"},
	}, audit()...)...,
))

var transactionCodec = entity.MustCodec[models.Transaction](schema.MustNew(TransactionsCollection, "transactionId",
	append([]schema.Field{
		{UI: "transactionId"},
		{UI: "type"},
		{UI: "amount"},
		{UI: "currency"},
		{UI: "status"},
		{UI: "clientName"},
		{UI: "description"},
		{UI: "paymentMethod"},
		{UI: "referenceNumber"},
		{UI: "date"},
	}, audit()...)...,
))

var activityCodec = entity.MustCodec[models.Activity](schema.MustNew(ActivitiesCollection, "title",
	append([]schema.Field{
		{UI: "type"},
		{UI: "title"},
		{UI: "description"},
		{UI: "status"},
		{UI: "priority"},
		{UI: "dueDate"},
		{UI: "completedAt"},
		{UI: "contactId", LookupName: "contactName"},
		{UI: "contactName"},
		{UI: "dealId", LookupName: "dealTitle"},
		{UI: "dealTitle"},
		{UI: "assignedTo"},
		{UI: "outcome"},
	}, audit()...)...,
))

// Mapping returns the field table for a storage collection.
func Mapping(collection string) (*schema.Mapping, bool) {
	switch collection {
	case ContactsCollection:
		return contactCodec.Mapping(), true
	case CompaniesCollection:
		return companyCodec.Mapping(), true
	case DealsCollection:
		return dealCodec.Mapping(), true
	case QuotesCollection:
		return quoteCodec.Mapping(), true
	case TransactionsCollection:
		return transactionCodec.Mapping(), true
	case ActivitiesCollection:
		return activityCodec.Mapping(), true
	}
	return nil, false
}
