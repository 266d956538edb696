package service

import (
	"context"
	"fmt"
	"math/rand/v2"
)

const displayNameAttempts = 30

var (
	nameAdjectives = []string{
		"Brave", "Calm", "Clever", "Cosmic", "Eager", "Fuzzy", "Gentle", "Golden",
		"Happy", "Jolly", "Lucky", "Mighty", "Nimble", "Quiet", "Rapid", "Shiny",
		"Sly", "Spiky", "Swift", "Witty",
	}
	nameNouns = []string{
		"Badger", "Comet", "Falcon", "Fox", "Gecko", "Heron", "Koala", "Lynx",
		"Meteor", "Otter", "Panda", "Pebble", "Quokka", "Raven", "Rocket", "Sparrow",
		"Tiger", "Walrus", "Wombat", "Yak",
	}
)

func randomDisplayName() string {
	return fmt.Sprintf("%s%s%d",
		nameAdjectives[rand.IntN(len(nameAdjectives))],
		nameNouns[rand.IntN(len(nameNouns))],
		rand.IntN(100),
	)
}

// displayNameFor picks an unused generated name, falling back to the address
func (s *AuthService) displayNameFor(ctx context.Context, address string) (string, error) {
	for i := 0; i < displayNameAttempts; i++ {
		name := s.nameGenerator()
		exists, err := s.accounts.DisplayNameExists(ctx, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return address, nil
}
