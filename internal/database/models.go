package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Staff struct {
	ID             int64           `json:"id"`
	Phone          string          `json:"phone"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	HashedPassword string          `json:"-"`
	Role           string          `json:"role"`
	IsActive       bool            `json:"is_active"`
	BlackList      bool            `json:"black_list"`
	Schedule       []int16         `json:"schedule"`
	SalaryBalance  decimal.Decimal `json:"salary_balance"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	TelegramChatID pgtype.Int8     `json:"telegram_chat_id"`
	PhotoPath      pgtype.Text     `json:"photo_path"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (s Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

type Client struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type CleaningSort struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ObjectType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Service struct {
	ID             int64           `json:"id"`
	CleaningSortID int64           `json:"cleaning_sort_id"`
	ObjectTypeID   int64           `json:"object_type_id"`
	Unit           string          `json:"unit"`
	Price          decimal.Decimal `json:"price"`
}

type ExtraService struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Unit         pgtype.Text     `json:"unit"`
	Price        decimal.Decimal `json:"price"`
	CleaningTime pgtype.Int4     `json:"cleaning_time"`
}

type Inventory struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Amount int32  `json:"amount"`
}

type Cleanser struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Amount      int32           `json:"amount"`
}

type Order struct {
	ID             int64               `json:"id"`
	Status         string              `json:"status"`
	WorkStart      time.Time           `json:"work_start"`
	CleaningTime   int32               `json:"cleaning_time"`
	WorkEnd        time.Time           `json:"work_end"`
	WorkStartedAt  pgtype.Timestamptz  `json:"work_started_at"`
	WorkFinishedAt pgtype.Timestamptz  `json:"work_finished_at"`
	ClientID       int64               `json:"client_id"`
	Address        string              `json:"address"`
	ObjectTypeID   pgtype.Int8         `json:"object_type_id"`
	ManagerID      int64               `json:"manager_id"`
	PaymentType    string              `json:"payment_type"`
	Description    pgtype.Text         `json:"description"`
	Review         pgtype.Int2         `json:"review"`
	CleanersPart   decimal.NullDecimal `json:"cleaners_part"`
	TotalCost      decimal.NullDecimal `json:"total_cost"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type StaffOrder struct {
	ID          int64              `json:"id"`
	OrderID     int64              `json:"order_id"`
	StaffID     int64              `json:"staff_id"`
	IsBrigadier bool               `json:"is_brigadier"`
	IsAccept    bool               `json:"is_accept"`
	InPlace     pgtype.Timestamptz `json:"in_place"`
	CreatedAt   time.Time          `json:"created_at"`
}

type ServiceOrder struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	ServiceID      pgtype.Int8     `json:"service_id"`
	ExtraServiceID pgtype.Int8     `json:"extra_service_id"`
	Amount         int32           `json:"amount"`
	Rate           decimal.Decimal `json:"rate"`
	Total          decimal.Decimal `json:"total"`
}

type InventoryInOrder struct {
	ID          int64 `json:"id"`
	OrderID     int64 `json:"order_id"`
	InventoryID int64 `json:"inventory_id"`
	Amount      int32 `json:"amount"`
}

type CleanserInOrder struct {
	ID         int64 `json:"id"`
	OrderID    int64 `json:"order_id"`
	CleanserID int64 `json:"cleanser_id"`
	Amount     int32 `json:"amount"`
}

type ForemanReport struct {
	ID           int64               `json:"id"`
	StaffOrderID int64               `json:"staff_order_id"`
	Expenses     decimal.NullDecimal `json:"expenses"`
	StartAt      time.Time           `json:"start_at"`
	EndAt        time.Time           `json:"end_at"`
	CreatedAt    time.Time           `json:"created_at"`
}

type ForemanPhoto struct {
	ID           int64     `json:"id"`
	StaffOrderID int64     `json:"staff_order_id"`
	ImagePath    string    `json:"image_path"`
	IsAfter      bool      `json:"is_after"`
	CreatedAt    time.Time `json:"created_at"`
}

type ForemanOrderUpdate struct {
	ID             int64       `json:"id"`
	OrderID        int64       `json:"order_id"`
	StaffID        int64       `json:"staff_id"`
	ServiceID      pgtype.Int8 `json:"service_id"`
	ExtraServiceID pgtype.Int8 `json:"extra_service_id"`
	Amount         int32       `json:"amount"`
	CreatedAt      time.Time   `json:"created_at"`
}

type ManagerReport struct {
	ID                 int64           `json:"id"`
	OrderID            int64           `json:"order_id"`
	CleanerID          int64           `json:"cleaner_id"`
	Salary             decimal.Decimal `json:"salary"`
	Bonus              decimal.Decimal `json:"bonus"`
	BonusDescription   pgtype.Text     `json:"bonus_description"`
	Forfeit            decimal.Decimal `json:"forfeit"`
	ForfeitDescription pgtype.Text     `json:"forfeit_description"`
	CreatedAt          time.Time       `json:"created_at"`
}

type CashManager struct {
	ID        int64           `json:"id"`
	StaffID   int64           `json:"staff_id"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
