package tutor

// Decision is the router's verdict after a node has run: either advance
// to Next within the same turn, or suspend and wait for the student.
type Decision struct {
	Next    Node
	Suspend bool
}

func advance(n Node) Decision { return Decision{Next: n} }

var suspend = Decision{Suspend: true}

// Route maps the node that just ran and the resulting state to the next
// step. It is pure: identical inputs always give the same decision.
func Route(from Node, s *State) Decision {
	switch from {
	case NodeExposition:
		if last, ok := s.LastMessage(); ok && last.Role == RoleStudent && RequestsQuestion(last.Content) {
			return advance(NodeQuestioning)
		}
		return suspend
	case NodeQuestioning:
		return suspend
	case NodeEvaluation:
		if s.LastEvaluation != nil && s.LastEvaluation.Correctness == Correct {
			return advance(NodeQuestioning)
		}
		return advance(NodeDiagnosis)
	case NodeDiagnosis:
		return advance(NodeSocratic)
	default:
		return suspend
	}
}

// EntryNode picks the first node to execute for an incoming student
// message. In exposition the router is consulted first so an explicit
// practice request skips straight to questioning. Every other state is
// waiting on an answer, so the message goes to evaluation.
func EntryNode(s *State) Node {
	switch s.CurrentState {
	case NodeExposition:
		if d := Route(NodeExposition, s); !d.Suspend {
			return d.Next
		}
		return NodeExposition
	default:
		return NodeEvaluation
	}
}
