package catalog

import "time"

// Unit is how a service is billed.
type Unit string

const (
	UnitHour Unit = "hour"
	UnitItem Unit = "item"
)

// Court is a bookable court with its base hourly price.
type Court struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	BranchID        int64     `gorm:"index;not null" json:"branch_id"`
	Name            string    `gorm:"type:varchar(100);not null" json:"name"`
	BaseHourlyPrice int64     `gorm:"not null" json:"base_hourly_price"`
	Status          string    `gorm:"type:varchar(20);default:'ACTIVE'" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Service is the branch-independent definition of an add-on (racket rental, trainer, drinks).
type Service struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Unit      Unit      `gorm:"type:varchar(20);not null;default:'item'" json:"unit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BranchService is the branch-scoped pricing record for a Service.
type BranchService struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	BranchID  int64     `gorm:"index;not null" json:"branch_id"`
	ServiceID int64     `gorm:"index;not null" json:"service_id"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"`
	Stock     int       `gorm:"default:0" json:"stock"`
	Status    string    `gorm:"type:varchar(20);default:'ACTIVE'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Court) TableName() string {
	return "courts"
}

func (Service) TableName() string {
	return "services"
}

func (BranchService) TableName() string {
	return "branch_services"
}

// IsHourly reports whether the service is billed per hour of its own window.
func (s Service) IsHourly() bool {
	return s.Unit == UnitHour
}

// Reference bundles the read-only price tables the engine needs for one booking.
type Reference struct {
	Court          *Court
	BranchServices map[int64]BranchService
	Services       map[int64]Service
}

// IndexBranchServices keys branch services by id.
func IndexBranchServices(list []BranchService) map[int64]BranchService {
	out := make(map[int64]BranchService, len(list))
	for _, bs := range list {
		out[bs.ID] = bs
	}
	return out
}

// IndexServices keys services by id.
func IndexServices(list []Service) map[int64]Service {
	out := make(map[int64]Service, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out
}
