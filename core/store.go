package core

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/axiomesh/axiom-kit/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const proposalCounterKey = "counter:proposal"

// Store persists proposals and vote receipts and owns the sequential id
// counter. All ids come from the one counter, under the same lock as the
// rest of the state.
type Store struct {
	db   storage.Storage
	lock sync.RWMutex
}

func NewStore(db storage.Storage) *Store {
	return &Store{db: db}
}

func proposalKey(id uint64) []byte {
	buf := make([]byte, 0, 9+8)
	buf = append(buf, []byte("proposal:")...)
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], id)
	return append(buf, idBuf[:]...)
}

// voteKey keys a receipt by (proposal id, voter) so one identity can hold
// at most one receipt per proposal.
func voteKey(id uint64, voter common.Address) []byte {
	buf := make([]byte, 0, 5+8+common.AddressLength)
	buf = append(buf, []byte("vote:")...)
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], id)
	buf = append(buf, idBuf[:]...)
	return append(buf, voter.Bytes()...)
}

// NextID allocates the next sequential proposal id, starting at 1.
func (s *Store) NextID() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	var next uint64 = 1
	if data := s.db.Get([]byte(proposalCounterKey)); data != nil {
		next = binary.BigEndian.Uint64(data) + 1
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	s.db.Put([]byte(proposalCounterKey), buf[:])

	return next
}

func (s *Store) SaveProposal(p *Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to marshal proposal")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.db.Put(proposalKey(p.ID), data)
	return nil
}

func (s *Store) GetProposal(id uint64) (*Proposal, error) {
	s.lock.RLock()
	data := s.db.Get(proposalKey(id))
	s.lock.RUnlock()

	if data == nil {
		return nil, errors.Wrapf(ErrProposalNotFound, "id %d", id)
	}

	p := &Proposal{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal proposal %d", id)
	}
	return p, nil
}

// ListProposals walks the id range allocated so far.
func (s *Store) ListProposals() ([]*Proposal, error) {
	s.lock.RLock()
	var last uint64
	if data := s.db.Get([]byte(proposalCounterKey)); data != nil {
		last = binary.BigEndian.Uint64(data)
	}
	s.lock.RUnlock()

	proposals := make([]*Proposal, 0, last)
	for id := uint64(1); id <= last; id++ {
		p, err := s.GetProposal(id)
		if err != nil {
			if errors.Is(err, ErrProposalNotFound) {
				continue
			}
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

func (s *Store) HasVoted(id uint64, voter common.Address) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.db.Get(voteKey(id, voter)) != nil
}

func (s *Store) SaveVote(rec *VoteRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to marshal vote record")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.db.Put(voteKey(rec.ProposalID, rec.Voter), data)
	return nil
}

func (s *Store) GetVote(id uint64, voter common.Address) (*VoteRecord, error) {
	s.lock.RLock()
	data := s.db.Get(voteKey(id, voter))
	s.lock.RUnlock()

	if data == nil {
		return nil, nil
	}

	rec := &VoteRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal vote record for proposal %d", id)
	}
	return rec, nil
}
