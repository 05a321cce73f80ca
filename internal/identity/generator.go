// Package identity generates the synthetic registrant used by a wizard run.
package identity

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	alnumLower  = lowerChars + digitChars
	alnumChars  = lowerChars + upperChars + digitChars
	letterChars = lowerChars + upperChars

	passwordPrefix = "Strong@"
	passwordSuffix = 8
	tokenLength    = 8
	minNameLength  = 5
	maxNameLength  = 10

	// Phones are drawn from [phoneMin, phoneMax].
	phoneMin = 9700000000
	phoneMax = 9899999999

	DefaultDomain = "mailinator.com"
)

// Generator builds identities from a random source.
type Generator struct {
	Domain string
	rand   io.Reader
}

// New returns a Generator backed by crypto/rand.
func New(domain string) *Generator {
	if domain == "" {
		domain = DefaultDomain
	}
	return &Generator{Domain: domain, rand: rand.Reader}
}

// Generate creates a fresh identity with its own mailbox.
func (g *Generator) Generate() (schemas.Identity, error) {
	first, err := g.name()
	if err != nil {
		return schemas.Identity{}, err
	}
	last, err := g.name()
	if err != nil {
		return schemas.Identity{}, err
	}
	password, err := g.password()
	if err != nil {
		return schemas.Identity{}, err
	}
	phone, err := g.intRange(phoneMin, phoneMax)
	if err != nil {
		return schemas.Identity{}, err
	}
	token, err := g.pick(alnumLower, tokenLength)
	if err != nil {
		return schemas.Identity{}, err
	}

	local := "test" + token
	return schemas.Identity{
		FirstName: first,
		LastName:  last,
		Password:  password,
		Phone:     fmt.Sprintf("%d", phone),
		AltPhone:  AltPhone(phone),
		Mailbox: schemas.Mailbox{
			Address:   local + "@" + g.Domain,
			LocalPart: local,
			Domain:    g.Domain,
			Token:     token,
		},
	}, nil
}

// AltPhone renders a ten-digit phone as its two-digit prefix, a dash and the
// remaining eight digits, e.g. 9812345678 becomes "98-12345678".
func AltPhone(phone int64) string {
	return fmt.Sprintf("%02d-%08d", (phone/100000000)%100, phone%100000000)
}

func (g *Generator) name() (string, error) {
	n, err := g.intRange(minNameLength, maxNameLength)
	if err != nil {
		return "", err
	}
	s, err := g.pick(letterChars, int(n))
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:]), nil
}

// password is the fixed prefix plus eight alphanumerics that always include
// a lowercase letter, an uppercase letter and a digit.
func (g *Generator) password() (string, error) {
	var suffix []byte
	for _, set := range []string{upperChars, digitChars, lowerChars} {
		c, err := g.char(set)
		if err != nil {
			return "", err
		}
		suffix = append(suffix, c)
	}
	for len(suffix) < passwordSuffix {
		c, err := g.char(alnumChars)
		if err != nil {
			return "", err
		}
		suffix = append(suffix, c)
	}
	// Fisher-Yates so the mandatory classes are not at fixed positions.
	for i := len(suffix) - 1; i > 0; i-- {
		j, err := g.intRange(0, int64(i))
		if err != nil {
			return "", err
		}
		suffix[i], suffix[j] = suffix[j], suffix[i]
	}
	return passwordPrefix + string(suffix), nil
}

func (g *Generator) pick(charset string, n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		c, err := g.char(charset)
		if err != nil {
			return "", err
		}
		b[i] = c
	}
	return string(b), nil
}

func (g *Generator) char(charset string) (byte, error) {
	i, err := g.intRange(0, int64(len(charset)-1))
	if err != nil {
		return 0, err
	}
	return charset[i], nil
}

// intRange returns a uniform value in [lo, hi].
func (g *Generator) intRange(lo, hi int64) (int64, error) {
	n, err := rand.Int(g.rand, big.NewInt(hi-lo+1))
	if err != nil {
		return 0, fmt.Errorf("random source failure: %w", err)
	}
	return lo + n.Int64(), nil
}
