package services

import (
	"log"

	"github.com/vnkhanh/yearbook-server/models"
)

// Notifier receives poke events. Delivery is best effort: the orchestrator
// dispatches in a goroutine, logs failures and never lets them touch the
// state transition that triggered them.
type Notifier interface {
	PokeReceived(poke *models.Poke) error
	PokeReaction(poke *models.Poke) error
}

// LogNotifier is the default Notifier; it just writes to the server log.
type LogNotifier struct{}

func (LogNotifier) PokeReceived(poke *models.Poke) error {
	log.Printf("poke %d delivered: session %d -> session %d", poke.ID, poke.FromSessionID, poke.ToSessionID)
	return nil
}

func (LogNotifier) PokeReaction(poke *models.Poke) error {
	reaction := ""
	if poke.Reaction != nil {
		reaction = *poke.Reaction
	}
	log.Printf("poke %d got reaction %s", poke.ID, reaction)
	return nil
}

func dispatch(name string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			log.Printf("notify %s failed (ignored): %v", name, err)
		}
	}()
}
