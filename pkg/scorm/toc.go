package scorm

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"github.com/kiyor/scormplayer/pkg/store"
)

// Item is one package item as shown in the TOC.
type Item struct {
	store.ScormSco
	Status   string // notattempted, incomplete, completed, passed, failed, browsed
	Visible  bool
	URL      string // loadSCO link, set for launchable items
	Current  bool
	Children []*Item
}

// TOCObject is the user's view of one organization of a package.
type TOCObject struct {
	Organization  *store.ScormSco
	Scoes         []*Item // items of the organization in manifest order
	Tree          []*Item
	Current       *Item
	Incomplete    bool
	AttemptLeft   int
	Prerequisites bool
}

// TOC adds the rendering details the player needs to a TOCObject.
type TOC struct {
	*TOCObject
	Title string
	Sco   *store.ScormSco
}

// TOCObject builds the TOC data of the organization currentorg ("" for the
// first one) for an attempt. scoid selects the current item; 0 picks the first
// incomplete launchable item.
func (l *Library) TOCObject(userID int64, sc *store.Scorm, currentorg string, scoid int64, mode string, attempt int) (*TOCObject, error) {
	all, err := l.store.Scoes(sc.ID)
	if err != nil {
		return nil, err
	}
	tracks, err := l.store.Tracks(userID, sc.ID, attempt)
	if err != nil {
		return nil, err
	}
	dm := ResolveDatamodel(sc.Version)
	attempts, err := l.store.AttemptCount(userID, sc.ID, dm.CompletionElement)
	if err != nil {
		return nil, err
	}

	values := make(map[int64]map[string]string)
	for _, t := range tracks {
		if values[t.ScoID] == nil {
			values[t.ScoID] = make(map[string]string)
		}
		values[t.ScoID][t.Element] = t.Value
	}

	obj := &TOCObject{Prerequisites: true}
	if sc.MaxAttempt == 0 {
		obj.AttemptLeft = 1
	} else {
		obj.AttemptLeft = sc.MaxAttempt - attempts
	}

	for i := range all {
		if all[i].Parent != "/" {
			continue
		}
		if currentorg == "" || all[i].Identifier == currentorg {
			org := all[i]
			obj.Organization = &org
			break
		}
	}

	byIdentifier := make(map[string]*Item)
	for _, sco := range all {
		if sco.Parent == "/" {
			continue
		}
		if obj.Organization != nil && sco.Organization != obj.Organization.Identifier {
			continue
		}
		it := &Item{
			ScormSco: sco,
			Status:   itemStatus(dm, values[sco.ID]),
			Visible:  sco.GetData()["isvisible"] != "false",
		}
		if sco.Launchable() {
			it.URL = l.scoURL(sc.ID, sco.ID, currentorg, mode, attempt)
		}
		obj.Scoes = append(obj.Scoes, it)
		byIdentifier[sco.Identifier] = it
	}
	for _, it := range obj.Scoes {
		if parent, ok := byIdentifier[it.Parent]; ok && parent != it {
			parent.Children = append(parent.Children, it)
		} else {
			obj.Tree = append(obj.Tree, it)
		}
	}

	var firstLaunchable, firstIncomplete *Item
	for _, it := range obj.Scoes {
		if !it.Launchable() {
			continue
		}
		if firstLaunchable == nil {
			firstLaunchable = it
		}
		if !statusDone(it.Status) {
			obj.Incomplete = true
			if firstIncomplete == nil {
				firstIncomplete = it
			}
		}
		if scoid != 0 && it.ID == scoid {
			obj.Current = it
		}
	}
	if obj.Current == nil && scoid != 0 {
		sco, err := l.store.Sco(scoid)
		switch {
		case err == nil && sco.Scorm == sc.ID:
			obj.Current = &Item{
				ScormSco: *sco,
				Status:   itemStatus(dm, values[sco.ID]),
				Visible:  sco.GetData()["isvisible"] != "false",
				URL:      l.scoURL(sc.ID, sco.ID, currentorg, mode, attempt),
			}
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	if obj.Current == nil {
		obj.Current = firstIncomplete
	}
	if obj.Current == nil {
		obj.Current = firstLaunchable
	}
	if obj.Current == nil {
		return nil, ErrNoLaunchableSco
	}
	obj.Current.Current = true

	if mode == ModeNormal {
		expr := obj.Current.GetData()["prerequisites"]
		obj.Prerequisites = EvalPrerequisites(expr, func(identifier string) bool {
			it, ok := byIdentifier[identifier]
			return ok && (it.Status == "completed" || it.Status == "passed")
		})
	}
	return obj, nil
}

// TOC builds the TOC object and the title shown above the tree.
func (l *Library) TOC(userID int64, sc *store.Scorm, currentorg string, scoid int64, mode string, attempt int) (*TOC, error) {
	obj, err := l.TOCObject(userID, sc, currentorg, scoid, mode, attempt)
	if err != nil {
		return nil, err
	}
	toc := &TOC{TOCObject: obj}
	if obj.Organization != nil {
		toc.Title = obj.Organization.Title
	}
	sco := obj.Current.ScormSco
	toc.Sco = &sco
	return toc, nil
}

func (l *Library) scoURL(scormID, scoID int64, currentorg, mode string, attempt int) string {
	v := url.Values{}
	v.Set("a", strconv.FormatInt(scormID, 10))
	v.Set("scoid", strconv.FormatInt(scoID, 10))
	if currentorg != "" {
		v.Set("currentorg", currentorg)
	}
	v.Set("mode", mode)
	v.Set("attempt", strconv.Itoa(attempt))
	return l.wwwroot + "/mod/scorm/loadSCO?" + v.Encode()
}

func itemStatus(dm *Datamodel, values map[string]string) string {
	if dm.SuccessElement != "" {
		switch values[dm.SuccessElement] {
		case "passed", "failed":
			return values[dm.SuccessElement]
		}
	}
	switch v := values[dm.CompletionElement]; v {
	case "", "not attempted", "unknown":
		return "notattempted"
	default:
		return v
	}
}

func statusDone(status string) bool {
	return status == "completed" || status == "passed"
}

// ADLNavItem is the client-side navigation entry of one launchable item.
type ADLNavItem struct {
	Identifier  string `json:"identifier"`
	Launch      string `json:"launch"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Parent      string `json:"parent"`
	IsVisible   string `json:"isvisible,omitempty"`
	Parameters  string `json:"parameters,omitempty"`
	ParentScoID int64  `json:"parentscoid,omitempty"`
	PrevScoID   int64  `json:"prevscoid,omitempty"`
	NextScoID   int64  `json:"nextscoid,omitempty"`
	PrevSibling int64  `json:"prevsibling,omitempty"`
	NextSibling int64  `json:"nextsibling,omitempty"`
}

// ADLNav walks the TOC tree depth first and links every launchable item to
// its neighbours in launch order. Items sharing a parent are siblings.
func ADLNav(tree []*Item) map[int64]*ADLNavItem {
	nav := make(map[int64]*ADLNavItem)
	var prev *Item
	var walk func(it *Item, parent *Item)
	walk = func(it *Item, parent *Item) {
		if it.URL != "" {
			data := it.GetData()
			n := &ADLNavItem{
				Identifier: it.Identifier,
				Launch:     it.Launch,
				Title:      it.Title,
				URL:        it.URL,
				Parent:     it.Parent,
				IsVisible:  data["isvisible"],
				Parameters: data["parameters"],
			}
			if parent != nil {
				n.ParentScoID = parent.ID
			}
			if prev != nil {
				n.PrevScoID = prev.ID
				nav[prev.ID].NextScoID = it.ID
				if prev.Parent == it.Parent {
					n.PrevSibling = prev.ID
					nav[prev.ID].NextSibling = it.ID
				}
			}
			nav[it.ID] = n
			prev = it
		}
		for _, c := range it.Children {
			walk(c, it)
		}
	}
	for _, it := range tree {
		walk(it, nil)
	}
	return nav
}

// ADLNavJSON encodes ADLNav for the player init call.
func ADLNavJSON(tree []*Item) (string, error) {
	b, err := json.Marshal(ADLNav(tree))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
