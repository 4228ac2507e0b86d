package library

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// UserRegistry owns the user records. It does not enforce unique usernames;
// callers that need uniqueness check FindByUsername first.
type UserRegistry struct {
	byID       map[int64]*User
	order      []int64
	nextID     int64
	bcryptCost int
}

func NewUserRegistry(bcryptCost int) *UserRegistry {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserRegistry{byID: make(map[int64]*User), nextID: 1, bcryptCost: bcryptCost}
}

// NextID is the id the next added user will receive.
func (r *UserRegistry) NextID() int64 { return r.nextID }

// Add hashes the password and stores a new user with the next id. The id
// counter only advances when the user is stored.
func (r *UserRegistry) Add(username, password string, role Role) (User, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordKey(password), r.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		ID:              r.nextID,
		Username:        username,
		PasswordHash:    string(hash),
		Role:            role,
		BorrowedBookIDs: []int64{},
	}
	r.nextID++
	r.insert(u)
	return u.clone(), nil
}

func (r *UserRegistry) insert(u *User) {
	r.byID[u.ID] = u
	r.order = append(r.order, u.ID)
}

// FindByUsername looks a user up case-insensitively. With duplicate usernames
// the earliest registered one wins.
func (r *UserRegistry) FindByUsername(name string) (User, bool) {
	u, ok := r.recordByUsername(name)
	if !ok {
		return User{}, false
	}
	return u.clone(), true
}

func (r *UserRegistry) GetByID(id int64) (User, bool) {
	u, ok := r.byID[id]
	if !ok {
		return User{}, false
	}
	return u.clone(), true
}

// All returns every user in registration order.
func (r *UserRegistry) All() []User {
	users := make([]User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.byID[id].clone())
	}
	return users
}

func (r *UserRegistry) Len() int { return len(r.order) }

// CheckPassword compares the plain password against the stored hash.
func CheckPassword(u User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), passwordKey(password)) == nil
}

// passwordKey digests the password to a fixed 44 bytes so passwords of any
// length fit under bcrypt's 72 byte input limit.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	key := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(key, sum[:])
	return key
}

func (r *UserRegistry) recordByUsername(name string) (*User, bool) {
	for _, id := range r.order {
		if u := r.byID[id]; strings.EqualFold(u.Username, name) {
			return u, true
		}
	}
	return nil, false
}
