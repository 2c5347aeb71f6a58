package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/loot-dogs/gameserver/internal/apperr"
	"github.com/loot-dogs/gameserver/internal/avatar"
	"github.com/loot-dogs/gameserver/internal/mapdata"
	"github.com/loot-dogs/gameserver/internal/tickdriver"
)

// mapSummary is the listing entry for GET /maps.
type mapSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	ids := s.world.MapIDs()
	out := make([]mapSummary, 0, len(ids))
	for _, id := range ids {
		m, _ := s.world.Map(id)
		out = append(out, mapSummary{ID: m.ID, Name: m.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

type wireRoadOut struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type wireBuildingOut struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type wireOfficeOut struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type wireLootOut struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type mapDetail struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Roads     []wireRoadOut     `json:"roads"`
	Buildings []wireBuildingOut `json:"buildings"`
	Offices   []wireOfficeOut   `json:"offices"`
	LootTypes []wireLootOut     `json:"lootTypes"`
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, ok := s.world.Map(id)
	if !ok {
		writeError(w, apperr.New(apperr.NotFound, "map not found"))
		return
	}
	writeJSON(w, http.StatusOK, toMapDetail(m))
}

func toMapDetail(m *mapdata.Map) mapDetail {
	roads := make([]wireRoadOut, len(m.Roads))
	for i, rd := range m.Roads {
		out := wireRoadOut{X0: rd.Start.X, Y0: rd.Start.Y}
		if rd.Axis == mapdata.Horizontal {
			x1 := rd.End.X
			out.X1 = &x1
		} else {
			y1 := rd.End.Y
			out.Y1 = &y1
		}
		roads[i] = out
	}
	buildings := make([]wireBuildingOut, len(m.Buildings))
	for i, b := range m.Buildings {
		buildings[i] = wireBuildingOut{X: b.Origin.X, Y: b.Origin.Y, W: b.Size.Width, H: b.Size.Height}
	}
	offices := make([]wireOfficeOut, len(m.Offices))
	for i, o := range m.Offices {
		offices[i] = wireOfficeOut{ID: o.ID, X: o.Position.X, Y: o.Position.Y, OffsetX: o.Offset.DX, OffsetY: o.Offset.DY}
	}
	lootTypes := make([]wireLootOut, len(m.LootTypes))
	for i, lt := range m.LootTypes {
		lootTypes[i] = wireLootOut{Name: lt.Name, Value: lt.Value}
	}
	return mapDetail{ID: m.ID, Name: m.Name, Roads: roads, Buildings: buildings, Offices: offices, LootTypes: lootTypes}
}

type joinRequest struct {
	UserName string `json:"userName"`
	MapID    string `json:"mapId"`
}

type joinResponse struct {
	AuthToken string `json:"authToken"`
	PlayerID  int    `json:"playerId"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidRequest, "join request parse error"))
		return
	}
	if req.UserName == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "invalid name"))
		return
	}

	a, err := s.world.Join(req.MapID, req.UserName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{AuthToken: a.Token, PlayerID: a.ID})
}

type playerSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	me := playerFromContext(r)
	players, ok := s.world.PlayersInSession(me.ID)
	if !ok {
		writeError(w, apperr.New(apperr.Internal, "session lookup failed"))
		return
	}
	out := make([]playerSummary, len(players))
	for i, p := range players {
		out[i] = playerSummary{ID: p.ID, Name: p.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

// wirePlayerState is one player's state as reported over /game/state. Speed
// is reported in units per SECOND, though the simulation stores it
// internally in units per millisecond.
type wirePlayerState struct {
	Position  [2]float64 `json:"pos"`
	Speed     [2]float64 `json:"speed"`
	Direction string     `json:"dir"`
	Bag       []bagItem  `json:"bag"`
	Score     int        `json:"score"`
}

type bagItem struct {
	ID   int64 `json:"id"`
	Type int   `json:"type"`
}

type wireLostObject struct {
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

type stateResponse struct {
	Players     map[string]wirePlayerState `json:"players"`
	LostObjects map[string]wireLostObject  `json:"lostObjects"`
}

const millisPerSecond = 1000

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	me := playerFromContext(r)
	players, ok := s.world.PlayersInSession(me.ID)
	if !ok {
		writeError(w, apperr.New(apperr.Internal, "session lookup failed"))
		return
	}

	resp := stateResponse{
		Players:     make(map[string]wirePlayerState, len(players)),
		LostObjects: make(map[string]wireLostObject),
	}
	for _, p := range players {
		bag := make([]bagItem, len(p.Bag))
		for i, item := range p.Bag {
			bag[i] = bagItem{ID: item.ID, Type: item.Type}
		}
		resp.Players[strconv.Itoa(p.ID)] = wirePlayerState{
			Position:  [2]float64{p.Position.X, p.Position.Y},
			Speed:     [2]float64{p.Velocity.X * millisPerSecond, p.Velocity.Y * millisPerSecond},
			Direction: p.Facing.String(),
			Bag:       bag,
			Score:     p.Score,
		}
	}

	sess, _ := s.world.SessionForPlayer(me.ID)
	if sess != nil {
		for _, d := range sess.Loot() {
			resp.LostObjects[strconv.FormatInt(d.Item.ID, 10)] = wireLostObject{
				Type: d.Item.Type,
				Pos:  [2]float64{d.Position.X, d.Position.Y},
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type actionRequest struct {
	Move string `json:"move"`
}

func (s *Server) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	me := playerFromContext(r)
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidRequest, "action request parse error"))
		return
	}
	d, stop, ok := avatar.ParseDirection(req.Move)
	if !ok {
		writeError(w, apperr.New(apperr.InvalidRequest, "invalid move direction"))
		return
	}
	if err := s.world.SetDirection(me.ID, d, stop); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type tickRequest struct {
	TimeDelta float64 `json:"timeDelta"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if s.driver.Mode() == tickdriver.Automatic {
		writeError(w, apperr.New(apperr.InvalidRequest, "server is running in automatic tick mode"))
		return
	}
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidRequest, "tick request parse error"))
		return
	}
	if err := s.driver.Fire(req.TimeDelta); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidRequest, "tick failed", err))
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type recordEntry struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	PlayTime float64 `json:"playTime"`
}

// maxRecordsPerRequest bounds GET /game/records?maxItems so a single request
// can't force an unbounded leaderboard scan.
const maxRecordsPerRequest = 100

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	maxItems, _ := strconv.Atoi(r.URL.Query().Get("maxItems"))

	if maxItems > maxRecordsPerRequest {
		writeError(w, apperr.New(apperr.InvalidRequest, "maxItems exceeds 100"))
		return
	}

	if s.leaderboard == nil {
		writeJSON(w, http.StatusOK, []recordEntry{})
		return
	}
	rows, err := s.leaderboard.GetPlayers(r.Context(), start, maxItems)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "fetch leaderboard", err))
		return
	}
	out := make([]recordEntry, len(rows))
	for i, row := range rows {
		out[i] = recordEntry{Name: row.Name, Score: row.Score, PlayTime: row.PlayTimeSecs}
	}
	writeJSON(w, http.StatusOK, out)
}
