package models

import (
	"time"

	"github.com/USA-RedDragon/camper-server/internal/planner"
	"github.com/google/uuid"
	"github.com/mattn/go-nulltype"
	"gorm.io/gorm"
)

type Trip struct {
	ID string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	// Supabase user id, null for trips saved without authentication
	OwnerID          nulltype.NullString `json:"ownerId" gorm:"index;type:varchar(64)"`
	Name             string              `json:"name"`
	Origin           string              `json:"origin"`
	Destination      string              `json:"destination"`
	Waypoints        []string            `json:"waypoints" gorm:"serializer:json"`
	TravelMode       string              `json:"travelMode"`
	KmPerDay         float64             `json:"kmPerDay"`
	StartDate        string              `json:"startDate" gorm:"type:varchar(10)"`
	ReturnDate       string              `json:"returnDate,omitempty" gorm:"type:varchar(10)"`
	DistanceKm       float64             `json:"distanceKm"`
	Itinerary        []planner.DailyPlan `json:"itinerary" gorm:"serializer:json"`
	OverviewPolyline string              `json:"overviewPolyline,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (t Trip) TableName() string {
	return "trips"
}

func (t *Trip) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Request rebuilds the itinerary request the trip was planned from.
func (t Trip) Request() planner.Request {
	return planner.Request{
		TripName:     t.Name,
		Origin:       t.Origin,
		Destination:  t.Destination,
		Waypoints:    t.Waypoints,
		TravelMode:   t.TravelMode,
		KmMaximoDia:  t.KmPerDay,
		FechaInicio:  t.StartDate,
		FechaRegreso: t.ReturnDate,
	}
}

func ownedBy(db *gorm.DB, owner nulltype.NullString) *gorm.DB {
	if owner.Valid() {
		return db.Where("owner_id = ?", owner.StringValue())
	}
	return db.Where("owner_id IS NULL")
}

func FindTripByID(db *gorm.DB, id string, owner nulltype.NullString) (Trip, error) {
	var trip Trip
	err := ownedBy(db, owner).Where("id = ?", id).First(&trip).Error
	return trip, err
}

func ListTrips(db *gorm.DB, owner nulltype.NullString) ([]Trip, error) {
	var trips []Trip
	err := ownedBy(db, owner).Order("updated_at desc").Find(&trips).Error
	return trips, err
}

func SaveTrip(db *gorm.DB, trip *Trip) error {
	return db.Save(trip).Error
}

// DeleteTrip soft deletes a trip. gorm.ErrRecordNotFound is returned when the owner has
// no such trip.
func DeleteTrip(db *gorm.DB, id string, owner nulltype.NullString) error {
	result := ownedBy(db, owner).Where("id = ?", id).Delete(&Trip{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
