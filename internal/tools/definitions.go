package tools

// Definition describes a tool for a function-calling model.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Schema is a JSON Schema object.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property is one argument of a tool.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Items       *Property `json:"items,omitempty"`
	Minimum     *int      `json:"minimum,omitempty"`
	Maximum     *int      `json:"maximum,omitempty"`
}

func str(desc string) Property  { return Property{Type: "string", Description: desc} }
func flag(desc string) Property { return Property{Type: "boolean", Description: desc} }

func integer(desc string, lo, hi int) Property {
	return Property{Type: "integer", Description: desc, Minimum: &lo, Maximum: &hi}
}

func strList(desc string) Property {
	return Property{Type: "array", Description: desc, Items: &Property{Type: "string"}}
}

func object(required []string, props map[string]Property) Schema {
	return Schema{Type: "object", Properties: props, Required: required}
}

var (
	localeProp   = str("Reply language: ru, es or en")
	staffIDProp  = str("Staff id as returned by list_staff")
	startISOProp = str("ISO-8601 timestamp; without an offset the salon timezone is used")
)

// Definitions lists every registered tool, in the same order as Names.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        "cancel_booking",
			Description: "Cancel an existing booking.",
			Parameters: object([]string{"booking_id"}, map[string]Property{
				"booking_id": str("Booking id from create_booking or find_booking_by_phone"),
				"staff_id":   staffIDProp,
			}),
		},
		{
			Name:        "create_booking",
			Description: "Book an appointment. Always confirm the slot with suggest_slots first; on time_conflict offer other slots.",
			Parameters: object([]string{"name", "phone", "start_iso"}, map[string]Property{
				"name":         str("Client name"),
				"phone":        str("Client phone"),
				"start_iso":    startISOProp,
				"staff_id":     staffIDProp,
				"service_id":   str("Service code or name"),
				"services":     strList("Several services booked back to back"),
				"duration_min": integer("Overrides the catalog duration", 5, 480),
			}),
		},
		{
			Name:        "find_booking_by_phone",
			Description: "Find upcoming bookings for a phone number.",
			Parameters: object([]string{"phone"}, map[string]Property{
				"phone":    str("Client phone"),
				"staff_id": staffIDProp,
				"days":     integer("How many days ahead to look", 1, 365),
			}),
		},
		{
			Name:        "get_open_hours",
			Description: "Salon opening hours, or whether the salon is open on a given date.",
			Parameters: object(nil, map[string]Property{
				"date_iso": str("Date to check; omit for the weekly table"),
			}),
		},
		{
			Name:        "get_price",
			Description: "Price and duration of one service, matched by code or free text.",
			Parameters: object([]string{"service"}, map[string]Property{
				"service": str("Service code, name or description"),
				"locale":  localeProp,
			}),
		},
		{
			Name:        "get_services",
			Description: "The whole service catalog with prices and durations.",
			Parameters: object(nil, map[string]Property{
				"locale": localeProp,
			}),
		},
		{
			Name:        "get_staff_day",
			Description: "Whether a staff member works on a date, with shifts or the reason for the day off.",
			Parameters: object([]string{"staff_id", "date_iso"}, map[string]Property{
				"staff_id": staffIDProp,
				"date_iso": str("Date to check"),
			}),
		},
		{
			Name:        "get_staff_week",
			Description: "Working days and shifts of a staff member for up to two weeks.",
			Parameters: object([]string{"staff_id"}, map[string]Property{
				"staff_id":  staffIDProp,
				"start_iso": startISOProp,
				"days":      integer("Number of days", 1, maxWeekDays),
			}),
		},
		{
			Name:        "list_staff",
			Description: "Staff members with their specialties and services.",
			Parameters: object(nil, map[string]Property{
				"locale":        localeProp,
				"bookable_only": flag("Only members that can be booked online"),
			}),
		},
		{
			Name:        "remember_contact",
			Description: "Save the client's name and phone for a callback.",
			Parameters: object([]string{"name", "phone"}, map[string]Property{
				"name":  str("Client name"),
				"phone": str("Client phone"),
			}),
		},
		{
			Name:        "reschedule_booking",
			Description: "Move a booking to a new start time.",
			Parameters: object([]string{"booking_id", "new_start_iso"}, map[string]Property{
				"booking_id":    str("Booking id"),
				"staff_id":      staffIDProp,
				"new_start_iso": startISOProp,
				"duration_min":  integer("New duration; omit to keep the current one", 5, 480),
			}),
		},
		{
			Name:        "resolve_date",
			Description: "Turn a spoken day (today, tomorrow, on Friday, 15.11) into a date and a search start.",
			Parameters: object([]string{"query"}, map[string]Property{
				"query":          str("What the client said"),
				"prefer_morning": flag("Start the search at 09:00 instead of 08:00"),
			}),
		},
		{
			Name:        "suggest_slots",
			Description: "Free appointment windows for one or more services, optionally with a given staff member or for a group.",
			Parameters: object(nil, map[string]Property{
				"count":      integer("How many windows to return", 1, 10),
				"start_iso":  startISOProp,
				"service_id": str("Service code or name"),
				"services":   strList("Several services for one client; durations add up"),
				"party":      integer("Clients booked back to back", 1, 4),
				"staff_id":   staffIDProp,
				"locale":     localeProp,
			}),
		},
	}
}
