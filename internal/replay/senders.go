package replay

import "github.com/roach88/sfbtools/internal/message"

// BuildSenders validates the SDN and SQL configuration maps and creates the
// matching senders. A nil map binds no sender for that kind.
func BuildSenders(sdn, sql map[string]any) (map[message.Kind]Sender, error) {
	senders := make(map[message.Kind]Sender)

	if sdn != nil {
		cfg, err := DecodeSDNConfig(sdn)
		if err != nil {
			return nil, err
		}
		senders[message.KindSDN] = NewHTTPSender(cfg)
	}

	if sql != nil {
		cfg, err := DecodeSQLConfig(sql)
		if err != nil {
			return nil, err
		}
		senders[message.KindSQLQuery] = NewSQLSender(cfg)
	}

	return senders, nil
}

// SenderOptions turns a sender map into scheduler options.
func SenderOptions(senders map[message.Kind]Sender) []Option {
	opts := make([]Option, 0, len(senders))
	for kind, s := range senders {
		opts = append(opts, WithSender(kind, s))
	}
	return opts
}
