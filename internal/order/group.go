package order

import "strings"

// Group is the set of orders of one recipient within one run. Name is the
// display name of the first order seen for that recipient.
type Group struct {
	Name   string
	Orders []Order
}

// GroupByRecipient partitions orders by lower-cased recipient name. Groups
// appear in order of first appearance and keep their orders in source
// order; every input order lands in exactly one group.
func GroupByRecipient(orders []Order) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, o := range orders {
		key := strings.ToLower(o.Recipient)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Name: o.Recipient})
		}
		groups[i].Orders = append(groups[i].Orders, o)
	}
	return groups
}
