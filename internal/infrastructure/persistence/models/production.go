package models

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductionOrderModel is the persistence model for the ProductionOrder aggregate root.
type ProductionOrderModel struct {
	AggregateModel
	OrderNumber      string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProjectID        *uuid.UUID             `gorm:"type:uuid;index"`
	Quantity         int                    `gorm:"not null"`
	Status           production.OrderStatus `gorm:"type:varchar(20);not null;index"`
	DepositPaid      bool                   `gorm:"not null;default:false"`
	FinalPaymentPaid bool                   `gorm:"not null;default:false"`
	DepositPaidAt    *time.Time
	FinalPaidAt      *time.Time
}

// TableName returns the table name for GORM
func (ProductionOrderModel) TableName() string {
	return "production_orders"
}

// ToDomain converts the persistence model to a domain ProductionOrder
func (m *ProductionOrderModel) ToDomain() *production.ProductionOrder {
	return &production.ProductionOrder{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		ProjectID:         m.ProjectID,
		Quantity:          m.Quantity,
		Status:            m.Status,
		DepositPaid:       m.DepositPaid,
		FinalPaymentPaid:  m.FinalPaymentPaid,
		DepositPaidAt:     m.DepositPaidAt,
		FinalPaidAt:       m.FinalPaidAt,
	}
}

// ProductionOrderModelFromDomain creates a persistence model from a domain ProductionOrder
func ProductionOrderModelFromDomain(o *production.ProductionOrder) *ProductionOrderModel {
	m := &ProductionOrderModel{
		OrderNumber:      o.OrderNumber,
		ProjectID:        o.ProjectID,
		Quantity:         o.Quantity,
		Status:           o.Status,
		DepositPaid:      o.DepositPaid,
		FinalPaymentPaid: o.FinalPaymentPaid,
		DepositPaidAt:    o.DepositPaidAt,
		FinalPaidAt:      o.FinalPaidAt,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	return m
}

// OrderedItemModel is the persistence model for a production unit.
type OrderedItemModel struct {
	BaseModel
	ProductionOrderID uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_ordered_item_order_seq,priority:1"`
	Sequence          int                   `gorm:"not null;uniqueIndex:idx_ordered_item_order_seq,priority:2"`
	SKU               string                `gorm:"column:sku;type:varchar(80);not null;uniqueIndex"`
	Status            production.ItemStatus `gorm:"type:varchar(20);not null"`
	QCStatus          production.QCStatus   `gorm:"column:qc_status;type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (OrderedItemModel) TableName() string {
	return "ordered_items"
}

// ToDomain converts the persistence model to a domain OrderedItem
func (m *OrderedItemModel) ToDomain() production.OrderedItem {
	return production.OrderedItem{
		ID:                m.ID,
		ProductionOrderID: m.ProductionOrderID,
		Sequence:          m.Sequence,
		SKU:               m.SKU,
		Status:            m.Status,
		QCStatus:          m.QCStatus,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// OrderedItemModelFromDomain creates a persistence model from a domain OrderedItem
func OrderedItemModelFromDomain(item production.OrderedItem) OrderedItemModel {
	return OrderedItemModel{
		BaseModel: BaseModel{
			ID:        item.ID,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		},
		ProductionOrderID: item.ProductionOrderID,
		Sequence:          item.Sequence,
		SKU:               item.SKU,
		Status:            item.Status,
		QCStatus:          item.QCStatus,
	}
}

// ProjectModel is the persistence model for a project.
type ProjectModel struct {
	BaseModel
	Name       string     `gorm:"type:varchar(200);not null"`
	CustomerID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain Project
func (m *ProjectModel) ToDomain() *production.Project {
	return &production.Project{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		CustomerID: m.CustomerID,
	}
}

// ProjectModelFromDomain creates a persistence model from a domain Project
func ProjectModelFromDomain(p *production.Project) *ProjectModel {
	m := &ProjectModel{Name: p.Name, CustomerID: p.CustomerID}
	m.FromDomainBaseEntity(shared.BaseEntity{ID: p.ID, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt})
	return m
}
