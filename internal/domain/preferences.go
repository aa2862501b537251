package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Genre uint8

const (
	GenreRock Genre = iota
	GenreFolk
	GenreJazz
	GenreBlues
	GenreCountry
	GenreClassical
	GenreElectronic
	GenreHipHop
	GenrePop
	GenreSingerSongwriter
	GenreWorld
	GenreComedy
)

var genreNames = [...]string{
	GenreRock:             "rock",
	GenreFolk:             "folk",
	GenreJazz:             "jazz",
	GenreBlues:            "blues",
	GenreCountry:          "country",
	GenreClassical:        "classical",
	GenreElectronic:       "electronic",
	GenreHipHop:           "hip_hop",
	GenrePop:              "pop",
	GenreSingerSongwriter: "singer_songwriter",
	GenreWorld:            "world",
	GenreComedy:           "comedy",
}

func (g Genre) String() string {
	if int(g) < len(genreNames) {
		return genreNames[g]
	}
	return fmt.Sprintf("genre(%d)", uint8(g))
}

func ParseGenre(s string) (Genre, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range genreNames {
		if name == s {
			return Genre(i), nil
		}
	}
	return 0, ValidationError{Field: "genres", Message: fmt.Sprintf("unknown genre %q", s)}
}

type VenueType uint8

const (
	VenueLivingRoom VenueType = iota
	VenueBackyard
	VenueBarn
	VenueGallery
	VenueCafe
	VenueStudio
	VenueRooftop
	VenueWarehouse
)

var venueTypeNames = [...]string{
	VenueLivingRoom: "living_room",
	VenueBackyard:   "backyard",
	VenueBarn:       "barn",
	VenueGallery:    "gallery",
	VenueCafe:       "cafe",
	VenueStudio:     "studio",
	VenueRooftop:    "rooftop",
	VenueWarehouse:  "warehouse",
}

func (v VenueType) String() string {
	if int(v) < len(venueTypeNames) {
		return venueTypeNames[v]
	}
	return fmt.Sprintf("venue_type(%d)", uint8(v))
}

func ParseVenueType(s string) (VenueType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range venueTypeNames {
		if name == s {
			return VenueType(i), nil
		}
	}
	return 0, ValidationError{Field: "venue_types", Message: fmt.Sprintf("unknown venue type %q", s)}
}

// GenreSet is a bitset over Genre. The zero value is the empty set.
type GenreSet uint32

func NewGenreSet(gs ...Genre) GenreSet {
	var s GenreSet
	for _, g := range gs {
		s |= 1 << g
	}
	return s
}

func (s GenreSet) Has(g Genre) bool { return s&(1<<g) != 0 }
func (s GenreSet) Empty() bool { return s == 0 }
func (s GenreSet) Intersects(o GenreSet) bool { return s&o != 0 }

func (s GenreSet) Slice() []Genre {
	out := make([]Genre, 0, len(genreNames))
	for i := range genreNames {
		if s.Has(Genre(i)) {
			out = append(out, Genre(i))
		}
	}
	return out
}

func (s GenreSet) Strings() []string {
	gs := s.Slice()
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.String())
	}
	return out
}

func ParseGenreSet(names []string) (GenreSet, error) {
	var s GenreSet
	for _, n := range names {
		g, err := ParseGenre(n)
		if err != nil {
			return 0, err
		}
		s |= 1 << g
	}
	return s, nil
}

func (s GenreSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Strings()) }

func (s *GenreSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("genre set: %w", err)
	}
	parsed, err := ParseGenreSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// VenueTypeSet is a bitset over VenueType. The zero value is the empty set.
type VenueTypeSet uint32

func NewVenueTypeSet(vs ...VenueType) VenueTypeSet {
	var s VenueTypeSet
	for _, v := range vs {
		s |= 1 << v
	}
	return s
}

func (s VenueTypeSet) Has(v VenueType) bool { return s&(1<<v) != 0 }
func (s VenueTypeSet) Empty() bool { return s == 0 }
func (s VenueTypeSet) Intersects(o VenueTypeSet) bool { return s&o != 0 }

func (s VenueTypeSet) Strings() []string {
	out := make([]string, 0, len(venueTypeNames))
	for i := range venueTypeNames {
		if s.Has(VenueType(i)) {
			out = append(out, VenueType(i).String())
		}
	}
	return out
}

func ParseVenueTypeSet(names []string) (VenueTypeSet, error) {
	var s VenueTypeSet
	for _, n := range names {
		v, err := ParseVenueType(n)
		if err != nil {
			return 0, err
		}
		s |= 1 << v
	}
	return s, nil
}

func (s VenueTypeSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Strings()) }

func (s *VenueTypeSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("venue type set: %w", err)
	}
	parsed, err := ParseVenueTypeSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
