package domain

type Participant struct {
	ConnectionID string `json:"socketId"`
	DisplayName  string `json:"name"`
}

type Participants struct {
	list  []Participant
	limit int
}

// NewParticipants returns an empty participant list. A limit below 1 means unlimited.
func NewParticipants(limit int) *Participants {
	return &Participants{
		list:  []Participant{},
		limit: limit,
	}
}

func (p Participants) Length() int {
	return len(p.list)
}

func (p Participants) AsList() []Participant {
	list := make([]Participant, len(p.list))
	copy(list, p.list)
	return list
}

func (p Participants) GetByID(connectionID string) (Participant, int, error) {
	for index, participant := range p.list {
		if participant.ConnectionID == connectionID {
			return participant, index, nil
		}
	}

	return Participant{}, 0, ErrNotJoined
}

func (p Participants) Has(connectionID string) bool {
	_, _, err := p.GetByID(connectionID)
	return err == nil
}

func (p *Participants) Add(participant Participant) error {
	if p.Has(participant.ConnectionID) {
		return ErrAlreadyJoined
	}

	if p.limit > 0 && p.Length() >= p.limit {
		return ErrRoomCapacityExceeded
	}

	p.list = append(p.list, participant)
	return nil
}

func (p *Participants) RemoveByID(connectionID string) (Participant, error) {
	participant, index, err := p.GetByID(connectionID)
	if err != nil {
		return Participant{}, err
	}

	p.list = append(p.list[:index], p.list[index+1:]...)
	return participant, nil
}
