package models

import "time"

type Event struct {
	EventID       string   `json:"eventid" bson:"eventid"`
	ClubName      string   `json:"club_name" bson:"club_name"`
	EventType     string   `json:"event_type" bson:"event_type"`
	Price         string   `json:"price" bson:"price"` // display string, e.g. "12.50 €"
	Duration      string   `json:"duration,omitempty" bson:"duration,omitempty"`
	Distance      string   `json:"distance,omitempty" bson:"distance,omitempty"`
	Rating        float64  `json:"rating" bson:"rating"`
	ReviewCount   int      `json:"review_count" bson:"review_count"`
	Image         string   `json:"image,omitempty" bson:"image,omitempty"`
	FirstDrinkFree bool    `json:"first_drink_free" bson:"first_drink_free"`
	LocationName  string   `json:"location_name" bson:"location_name"`
	Latitude      float64  `json:"latitude" bson:"latitude"`
	Longitude     float64  `json:"longitude" bson:"longitude"`
	Conditions    []string `json:"conditions" bson:"conditions"`
	OrganizerID   string   `json:"organizerid" bson:"organizerid"`
	Description   string   `json:"description,omitempty" bson:"description,omitempty"`
	EventDate     time.Time `json:"event_date" bson:"event_date"`
}

type Organizer struct {
	OrganizerID string   `json:"organizerid" bson:"organizerid"`
	Name        string   `json:"name" bson:"name"`
	Rating      float64  `json:"rating" bson:"-"` // derived from RatingSum/ReviewCount
	RatingSum   int      `json:"-" bson:"rating_sum"`
	ReviewCount int      `json:"review_count" bson:"review_count"`
	ProfilePic  string   `json:"profile_pic,omitempty" bson:"profile_pic,omitempty"`
	Reviews     []Review `json:"reviews" bson:"reviews"`
}

type Review struct {
	ReviewID       string    `json:"reviewid" bson:"reviewid"`
	UserID         string    `json:"userid" bson:"userid"`
	UserName       string    `json:"user_name" bson:"user_name"`
	UserProfilePic string    `json:"user_profile_pic,omitempty" bson:"user_profile_pic,omitempty"`
	Rating         int       `json:"rating" bson:"rating"` // 1-5
	Comment        string    `json:"comment" bson:"comment"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
}
