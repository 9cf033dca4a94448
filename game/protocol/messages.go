package protocol

import "github.com/wricardo/typing-arena/game/grid"

// Event names carried in the first element of a frame
const (
	EventJoin     = "join"
	EventJoined   = "joined"
	EventResetReq = "reset-req"
	EventReset    = "reset"
	EventMove     = "move"
	EventStatus   = "status"
	EventOver     = "over"
	EventError    = "error"
)

// NoPlayer is the PlayerID of a Res that no request caused (eliminations)
const NoPlayer = -1

// MoveType distinguishes a single step from a two-step boost
type MoveType string

const (
	MoveNormal MoveType = "normal"
	MoveBoost  MoveType = "boost"
)

// Status is the game state machine position
type Status string

const (
	StatusPaused  Status = "paused"
	StatusPlaying Status = "playing"
	StatusOver    Status = "over"
)

// Dest names a target tile together with the requester's view of its counter
type Dest struct {
	Coord grid.Coord `json:"coord"`
	Now   int        `json:"now"`
}

// Req is a movement request
type Req struct {
	PlayerID  int      `json:"playerId"`
	PlayerNow int      `json:"playerNow"`
	MoveType  MoveType `json:"moveType"`
	Dest      Dest     `json:"dest"`
}

// TileMod overwrites one tile on a mirror
type TileMod struct {
	Coord  grid.Coord `json:"coord"`
	Now    int        `json:"now"`
	Char   string     `json:"char"`
	Seq    string     `json:"seq"`
	Health int        `json:"health"`
}

// PlayerMod overwrites one player on a mirror. A nil Coord leaves the
// player where it is; grid.NoCoord removes it from the board.
type PlayerMod struct {
	Health     int         `json:"health"`
	Score      int         `json:"score"`
	Coord      *grid.Coord `json:"coord,omitempty"`
	Eliminated bool        `json:"eliminated,omitempty"`
}

// TeamMod carries a team's elimination order
type TeamMod struct {
	ElimOrder int `json:"elimOrder"`
}

// Res is the authoritative answer to a Req, or an unsolicited event
type Res struct {
	PlayerID  int `json:"playerId"`
	PlayerNow int `json:"playerNow"`
	// RejectID is non-zero exactly for rejections
	RejectID int `json:"rejectId,omitempty"`
	EventID  int `json:"eventId,omitempty"`

	Tiles   []TileMod         `json:"tiles,omitempty"`
	Players map[int]PlayerMod `json:"players,omitempty"`
	Teams   map[int]TeamMod   `json:"teams,omitempty"`
}

// IsRejection reports whether r rejects a request
func (r *Res) IsRejection() bool { return r.RejectID != 0 }

// CoordPtr is a helper for PlayerMod.Coord
func CoordPtr(c grid.Coord) *grid.Coord { return &c }

// ResetSnapshot is the full-state sync sent to a (re)joining mirror. Every
// slice is in player or tile arena order.
type ResetSnapshot struct {
	Status       Status       `json:"status"`
	PlayerCoords []grid.Coord `json:"playerCoords"`
	PlayerNows   []int        `json:"playerNows"`
	PlayerHealth []int        `json:"playerHealth"`
	PlayerScores []int        `json:"playerScores"`
	Eliminated   []bool       `json:"eliminated"`
	TileLabels   []Label      `json:"tileLabels"`
	TileNows     []int        `json:"tileNows"`
	TileHealth   []int        `json:"tileHealth"`
	TeamElims    []int        `json:"teamElims"`
}

// Label is a tile's displayed char and its sequence
type Label struct {
	Char string `json:"char"`
	Seq  string `json:"seq"`
}

// Join asks for a free human slot
type Join struct {
	Name string `json:"name"`
}

// Joined binds a connection to a player
type Joined struct {
	PlayerID int   `json:"playerId"`
	TeamID   int   `json:"teamId"`
	Setup    Setup `json:"setup"`
}

// ResetRequest asks for a fresh ResetSnapshot
type ResetRequest struct{}

// StatusChange announces a state machine transition
type StatusChange struct {
	Status Status `json:"status"`
}

// Standing is one team's final placement
type Standing struct {
	TeamID    int    `json:"teamId"`
	Name      string `json:"name"`
	ElimOrder int    `json:"elimOrder"`
	Rank      int    `json:"rank"`
}

// Over is sent once when the game ends
type Over struct {
	Standings []Standing `json:"standings"`
}

// Error reports a failure to the peer
type Error struct {
	Message string `json:"message"`
}

// PlayerInfo is the static part of a player record
type PlayerInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	TeamID int    `json:"teamId"`
	Family string `json:"family"`
}

// TeamInfo is the static part of a team record
type TeamInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Immortal bool   `json:"immortal,omitempty"`
}

// Setup describes a game well enough for a mirror to build its own copy. A
// ResetSnapshot fills in the dynamic state.
type Setup struct {
	GameID      string          `json:"gameId"`
	Name        string          `json:"name"`
	CoordSystem grid.TopologyID `json:"coordSystem"`
	Dimensions  grid.Dimensions `json:"dimensions"`
	Lang        string          `json:"lang"`
	Players     []PlayerInfo    `json:"players"`
	Teams       []TeamInfo      `json:"teams"`
}
