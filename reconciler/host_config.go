package reconciler

// Instance is whatever a HostConfig uses for a node or a container.
type Instance = any

// HostConfig is the whole surface the reconciler has onto a concrete UI.
// Containers and host instances are both valid parents for the container
// operations.
type HostConfig interface {
	CreateInstance(typ string, props *Props) Instance
	CreateTextInstance(content string) Instance
	AppendInitialChild(parent, child Instance)
	AppendChildToContainer(child, container Instance)
	InsertChildToContainer(child, container, before Instance)
	RemoveChild(child, container Instance)
	CommitTextUpdate(text Instance, content string)
	ScheduleMicrotask(fn func())
}
