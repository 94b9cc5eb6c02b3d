package leads

const (
	TopicName       = "leads"
	leadCreatedName = "lead.created"
)

type LeadCreated struct {
	LeadUID string
	Name    string
	Email   string
	Service string
	Locale  string
}

func (e LeadCreated) GetEventTypeName() string {
	return leadCreatedName
}

func (e LeadCreated) GetAggregateName() string {
	return e.LeadUID
}
