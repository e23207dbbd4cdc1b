package remoteobject

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/fansqz/js-debugger/debugger"
	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/session"
	"github.com/fansqz/js-debugger/utils"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type TreeEventKind int

const (
	// RootChildrenChanged 根节点的子节点发生变化，或者根节点被替换
	RootChildrenChanged TreeEventKind = iota + 1
	// ChildrenLoaded 节点的属性已经从调试器获取
	ChildrenLoaded
	// MutableChildAdded 添加了一个等待输入名称的新节点
	MutableChildAdded
	// EditValueRequested 新添加的属性需要继续输入值
	EditValueRequested
	// NodeSelected 修改完成的节点
	NodeSelected
)

func (k TreeEventKind) String() string {
	switch k {
	case RootChildrenChanged:
		return "RootChildrenChanged"
	case ChildrenLoaded:
		return "ChildrenLoaded"
	case MutableChildAdded:
		return "MutableChildAdded"
	case EditValueRequested:
		return "EditValueRequested"
	case NodeSelected:
		return "NodeSelected"
	}
	return fmt.Sprintf("TreeEventKind(%d)", int(k))
}

type TreeEvent struct {
	Kind TreeEventKind
	Node *Node
}

type mutationKind int

const (
	mutationEdit mutationKind = iota
	mutationRename
	mutationAddChild
)

// propertyKey 属性修改请求与之后的属性变化事件通过远程对象和属性名关联
type propertyKey struct {
	objectId debugger.RemoteObjectId
	name     string
}

// pendingMutation 还没有收到确认的修改
// 添加属性时node是父节点，否则是被修改的节点
type pendingMutation struct {
	kind mutationKind
	node NodeID
}

// Tree 把调试会话中的远程对象同步到一棵节点树
//
// 所有对树和缓存的修改都经过ReplaceNode和RemoveNode，缓存总是包含从根节点可达的所有节点。
type Tree struct {
	session *session.Session
	arena   *Arena
	root    *Node
	cache   *Cache

	// deferredEvaluations 赋值表达式计算完成后需要重新计算的监视表达式
	deferredEvaluations map[string]string
	mutations           map[propertyKey]pendingMutation
	// pendingNewChild 等待属性加载完成后再添加新属性的节点
	pendingNewChild *hashset.Set
	beingEdited     NodeID

	// oneShot 根节点的表达式只计算一次，页面的全局对象变化后全部移除
	oneShot bool

	Events   *utils.ListenerManager[TreeEvent]
	removers []func()
}

func NewTree(s *session.Session) *Tree {
	t := &Tree{
		session:             s,
		arena:               NewArena(),
		cache:               NewCache(),
		deferredEvaluations: map[string]string{},
		mutations:           map[propertyKey]pendingMutation{},
		pendingNewChild:     hashset.New(),
		Events:              utils.NewListenerManager[TreeEvent](),
	}
	t.removers = append(t.removers,
		s.RemoteObjectEvents.Add(t.onRemoteObjectEvent),
		s.EvaluateEvents.Add(t.onEvaluateEvent),
		s.StateEvents.Add(t.onStateEvent),
	)
	return t
}

// NewOneShotTree 用于悬停和控制台的树，表达式只在添加或者再次提交时计算
func NewOneShotTree(s *session.Session) *Tree {
	t := NewTree(s)
	t.oneShot = true
	return t
}

func (t *Tree) Root() *Node {
	return t.root
}

// Node 节点已经被释放时返回nil
func (t *Tree) Node(id NodeID) *Node {
	return t.arena.Node(id)
}

func (t *Tree) Cache() *Cache {
	return t.cache
}

// NewNode 在这棵树的arena中创建节点
func (t *Tree) NewNode(builder *Builder) *Node {
	return builder.Build(t.arena)
}

// NewRoot 创建一个还没有挂载的根节点
func (t *Tree) NewRoot() *Node {
	return NewRoot(t.arena)
}

// BeingEdited 正在输入名称的新节点，没有时返回NoNode
func (t *Tree) BeingEdited() NodeID {
	if t.arena.Node(t.beingEdited) == nil {
		return NoNode
	}
	return t.beingEdited
}

func (t *Tree) RootChildrenCount() int {
	if t.root == nil {
		return 0
	}
	return len(t.root.Children())
}

// SetRoot 替换根节点，根节点变化时丢弃所有还没有确认的修改
func (t *Tree) SetRoot(newRoot *Node) {
	if t.root != newRoot {
		t.clearMutations()
	}
	t.ReplaceNode(t.root, newRoot)
}

// AddChild 添加子节点并重建缓存
func (t *Tree) AddChild(parent *Node, child *Node) error {
	if err := parent.AddChild(child); err != nil {
		return err
	}
	t.ReplaceNode(parent, parent)
	return nil
}

// ReplaceNode 用newNode替换oldNode，然后从根节点重新收集缓存，
// 不再可达的节点会被释放。替换的是根节点时通知RootChildrenChanged。
func (t *Tree) ReplaceNode(oldNode *Node, newNode *Node) {
	if oldNode != newNode && oldNode != t.root && (oldNode == nil || oldNode.Parent() == nil) {
		// oldNode已经不在树中，newNode不会被挂载
		if newNode != nil && !t.cache.Contains(newNode.id) {
			t.arena.release(newNode)
		}
		return
	}
	if oldNode != newNode && oldNode != nil {
		if parent := oldNode.Parent(); parent != nil {
			parent.RemoveChild(oldNode)
			if newNode != nil {
				if err := parent.AddChild(newNode); err != nil {
					logrus.Errorf("[ReplaceNode] %s, err = %v", parent, err)
				}
			}
		}
	}
	if oldNode == t.root {
		t.root = newNode
	}
	t.rebuildCache()
	if newNode == t.root {
		t.Events.Dispatch(TreeEvent{Kind: RootChildrenChanged, Node: t.root})
	}
}

// RemoveNode 从父节点中移除节点，并释放它的子树
func (t *Tree) RemoveNode(node *Node) {
	parent := node.Parent()
	if parent != nil {
		parent.RemoveChild(node)
	}
	t.release(node)
	wasRoot := node == t.root
	if wasRoot {
		t.root = nil
	}
	if wasRoot || (parent != nil && parent == t.root) {
		t.Events.Dispatch(TreeEvent{Kind: RootChildrenChanged, Node: t.root})
	}
}

func (t *Tree) release(node *Node) {
	for _, child := range node.childNodes() {
		t.release(child)
	}
	t.cache.Remove(node)
	t.arena.release(node)
}

func (t *Tree) rebuildCache() {
	cache := NewCache()
	if t.root != nil {
		walk(t.root, cache.Put)
	}
	t.cache.Iterate(func(id NodeID) {
		if cache.Contains(id) {
			return
		}
		if node := t.arena.Node(id); node != nil {
			t.arena.release(node)
		}
	})
	t.cache = cache
}

func walk(node *Node, visit func(node *Node)) {
	visit(node)
	for _, child := range node.childNodes() {
		walk(child, visit)
	}
}

// Expand 节点展开时，子节点还没有获取过则请求远程对象的属性
func (t *Tree) Expand(id NodeID) (bool, error) {
	node := t.arena.Node(id)
	if node == nil {
		return false, e.ErrNodeNotFound
	}
	if !node.ShouldRequestChildren() {
		return false, nil
	}
	t.session.RequestRemoteObjectProperties(node.ObjectId())
	return true, nil
}

// AddMutableRootChild 添加一个新的监视表达式，已经有正在输入的新节点时返回nil
func (t *Tree) AddMutableRootChild() *Node {
	if t.BeingEdited() != NoNode {
		return nil
	}
	if t.root == nil {
		t.SetRoot(t.NewRoot())
	}
	return t.addMutableChild(t.root)
}

// AddMutableChild 给远程对象添加属性
// 父节点的属性还没有获取时先请求属性，收到属性后再添加新节点，此时返回nil
func (t *Tree) AddMutableChild(parentId NodeID) (*Node, error) {
	parent := t.arena.Node(parentId)
	if parent == nil {
		return nil, e.ErrNodeNotFound
	}
	if parent != t.root && !parent.CanAddRemoteObjectProperty() {
		return nil, e.ErrReadOnlyNode
	}
	if parent.ShouldRequestChildren() {
		t.pendingNewChild.Add(parent.id)
		t.session.RequestRemoteObjectProperties(parent.ObjectId())
		return nil, nil
	}
	return t.addMutableChild(parent), nil
}

func (t *Tree) addMutableChild(parent *Node) *Node {
	t.CancelNewChild()
	child := newBeingEdited(t.arena)
	if err := t.AddChild(parent, child); err != nil {
		logrus.Errorf("[addMutableChild] %s, err = %v", parent, err)
		return nil
	}
	t.beingEdited = child.id
	t.Events.Dispatch(TreeEvent{Kind: MutableChildAdded, Node: child})
	return child
}

// CancelNewChild 放弃正在输入名称的新节点
func (t *Tree) CancelNewChild() {
	if node := t.arena.Node(t.beingEdited); node != nil {
		t.RemoveNode(node)
	}
	t.beingEdited = NoNode
}

// CommitNewChild 新节点输入名称完成
//
// 监视表达式直接追加并计算；对象属性不存在时先在远程对象上创建值为undefined的属性，
// 收到属性变化事件后通知EditValueRequested，属性已经存在时直接通知。
func (t *Tree) CommitNewChild(id NodeID, name string) error {
	node := t.arena.Node(id)
	if node == nil || id != t.beingEdited {
		return e.ErrNodeNotFound
	}
	parent := node.Parent()
	isRootChild := node.IsRootChild()

	t.beingEdited = NoNode
	t.RemoveNode(node)

	if isRootChild {
		t.AppendRootChild(name)
		return nil
	}
	if parent == nil || parent.RemoteObject() == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	if existing := parent.FirstChildByName(name); existing != nil {
		t.Events.Dispatch(TreeEvent{Kind: EditValueRequested, Node: existing})
		return nil
	}
	objectId := parent.ObjectId()
	t.mutations[propertyKey{objectId: objectId, name: name}] = pendingMutation{kind: mutationAddChild, node: parent.id}
	t.session.SetRemoteObjectProperty(objectId, name, debugger.UndefinedRemoteObject.Description)
	return nil
}

// EditValue 修改属性的值
// 监视表达式通过赋值表达式修改，计算完成后重新计算原来的表达式
func (t *Tree) EditValue(id NodeID, expression string) error {
	node := t.arena.Node(id)
	if node == nil {
		return e.ErrNodeNotFound
	}
	if !node.IsWritable() {
		return e.ErrReadOnlyNode
	}
	if node.IsRootChild() {
		assignment := "(" + node.name + ") = (" + expression + ")"
		t.deferredEvaluations[assignment] = node.name
		t.session.EvaluateExpression(assignment)
		return nil
	}
	parent := node.Parent()
	if parent == nil || parent.RemoteObject() == nil {
		return e.ErrReadOnlyNode
	}
	objectId := parent.ObjectId()
	t.mutations[propertyKey{objectId: objectId, name: node.name}] = pendingMutation{kind: mutationEdit, node: node.id}
	t.session.SetRemoteObjectProperty(objectId, node.name, expression)
	return nil
}

// Rename 重命名属性
// 监视表达式立即修改并重新计算；对象属性保持原来的名称，直到调试器确认修改
func (t *Tree) Rename(id NodeID, newName string) error {
	node := t.arena.Node(id)
	if node == nil {
		return e.ErrNodeNotFound
	}
	if node.name == newName {
		return nil
	}
	if node.IsRootChild() {
		node.SetName(newName)
		t.Events.Dispatch(TreeEvent{Kind: RootChildrenChanged, Node: t.root})
		t.session.EvaluateExpression(newName)
		return nil
	}
	parent := node.Parent()
	if parent == nil || parent.RemoteObject() == nil || !node.IsDeletable() {
		return e.ErrReadOnlyNode
	}
	objectId := parent.ObjectId()
	t.mutations[propertyKey{objectId: objectId, name: node.name}] = pendingMutation{kind: mutationRename, node: node.id}
	t.session.RenameRemoteObjectProperty(objectId, node.name, newName)
	return nil
}

// Delete 删除监视表达式或者对象属性
// 对象属性在调试器确认后才从树中移除
func (t *Tree) Delete(ids ...NodeID) error {
	var err error
	rootChanged := false
	for _, id := range ids {
		node := t.arena.Node(id)
		if node == nil {
			err = multierr.Append(err, fmt.Errorf("node %d: %w", id, e.ErrNodeNotFound))
			continue
		}
		parent := node.Parent()
		switch {
		case node.IsRootChild():
			parent.RemoveChild(node)
			rootChanged = true
		case parent != nil && parent.RemoteObject() != nil && node.IsDeletable():
			objectId := parent.ObjectId()
			delete(t.mutations, propertyKey{objectId: objectId, name: node.name})
			t.session.RemoveRemoteObjectProperty(objectId, node.name)
		default:
			err = multierr.Append(err, fmt.Errorf("%s: %w", node, e.ErrReadOnlyNode))
		}
	}
	if rootChanged {
		t.ReplaceNode(t.root, t.root)
	}
	return err
}

// AppendRootChild 追加监视表达式并计算，表达式为空时返回nil
func (t *Tree) AppendRootChild(expression string) *Node {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil
	}
	root := t.root
	if root == nil {
		root = t.NewRoot()
	}
	orderIndex := 0
	if last := t.lastRealChild(root); last != nil {
		orderIndex = last.orderIndex + 1
	}
	child := NewBuilder(expression, debugger.UndefinedRemoteObject).OrderIndex(orderIndex).Build(t.arena)
	_ = root.AddChild(child)
	t.SetRoot(root)
	t.session.EvaluateExpression(expression)
	return child
}

func (t *Tree) lastRealChild(node *Node) *Node {
	children := node.childNodes()
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].id != t.beingEdited && !children[i].placeholder {
			return children[i]
		}
	}
	return nil
}

// ReevaluateRootChildren 重新计算所有监视表达式，会话没有激活时全部显示为undefined
func (t *Tree) ReevaluateRootChildren() {
	t.deferredEvaluations = map[string]string{}
	if t.root == nil {
		return
	}
	children := t.root.Children()
	if t.session.IsActive() {
		for _, child := range children {
			if !child.transient && child.id != t.beingEdited {
				t.session.EvaluateExpression(child.name)
			}
		}
		return
	}
	root := t.NewRoot()
	for _, child := range children {
		if child.id == t.beingEdited {
			continue
		}
		_ = root.AddChild(NewBuilder(child.name, debugger.UndefinedRemoteObject).CopyFrom(child).Build(t.arena))
	}
	t.SetRoot(root)
}

// Teardown 取消监听会话并释放所有节点
func (t *Tree) Teardown() {
	for _, remove := range t.removers {
		remove()
	}
	t.removers = nil
	t.SetRoot(nil)
	t.clearMutations()
	t.deferredEvaluations = map[string]string{}
	t.beingEdited = NoNode
	t.arena = NewArena()
	t.Events.Clear()
}

func (t *Tree) clearMutations() {
	t.mutations = map[propertyKey]pendingMutation{}
	t.pendingNewChild.Clear()
}

func (t *Tree) liveNodes(objectId debugger.RemoteObjectId) []*Node {
	var nodes []*Node
	for _, id := range t.cache.Get(objectId) {
		if node := t.arena.Node(id); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (t *Tree) onRemoteObjectEvent(event session.RemoteObjectEvent) {
	if event.PropertiesResponse != nil {
		t.handlePropertiesResponse(event.PropertiesResponse)
	}
	if event.PropertyChanged != nil {
		t.handlePropertyChanged(event.PropertyChanged)
	}
}

// handlePropertiesResponse 属性应用到显示这个远程对象的每一个节点
func (t *Tree) handlePropertiesResponse(response *debugger.OnRemoteObjectPropertiesResponse) {
	parents := t.liveNodes(response.ObjectId)
	for _, parent := range parents {
		// 已经处理过的节点
		if !parent.ShouldRequestChildren() {
			continue
		}
		t.applyProperties(parent, response.Properties)
	}
	for _, parent := range parents {
		if !t.pendingNewChild.Contains(parent.id) {
			continue
		}
		t.pendingNewChild.Remove(parent.id)
		if t.arena.Node(parent.id) != nil && t.BeingEdited() == NoNode {
			t.addMutableChild(parent)
		}
		break
	}
}

func (t *Tree) applyProperties(parent *Node, properties []*debugger.PropertyDescriptor) {
	for _, property := range properties {
		if property == nil {
			continue
		}
		if property.Getter != nil || property.Setter != nil {
			if property.Getter != nil {
				t.appendNewNode(parent, newGetterProperty(t.arena, property.Name, property.Getter))
			}
			if property.Setter != nil {
				t.appendNewNode(parent, newSetterProperty(t.arena, property.Name, property.Setter))
			}
		} else if property.Value != nil {
			t.appendNewNode(parent, NewBuilder(property.Name, property.Value).
				WasThrown(property.WasThrown).
				Deletable(property.Configurable).
				Writable(property.Writable).
				Enumerable(property.Enumerable).
				Build(t.arena))
		}
	}
	parent.SetAllChildrenRequested()
	t.Events.Dispatch(TreeEvent{Kind: ChildrenLoaded, Node: parent})
}

func (t *Tree) appendNewNode(parent *Node, child *Node) {
	if err := parent.AddChild(child); err != nil {
		logrus.Errorf("[appendNewNode] %s, err = %v", parent, err)
		t.arena.release(child)
		return
	}
	t.cache.Put(child)
}

func (t *Tree) handlePropertyChanged(response *debugger.OnRemoteObjectPropertyChanged) {
	parents := t.liveNodes(response.ObjectId)
	if len(parents) == 0 {
		return
	}

	// 无法确定远程对象的状态，重新获取所有属性
	if response.WasThrown || (response.IsValueChanged && response.Value == nil) {
		t.refresh(response.ObjectId, parents)
		return
	}

	for _, parent := range parents {
		if t.arena.Node(parent.id) == nil {
			continue
		}
		child := parent.FirstChildByName(response.OldName)
		switch {
		case child == nil:
			if response.NewName != nil {
				t.handlePropertyAdded(response, parent)
			}
		case response.NewName == nil:
			delete(t.mutations, propertyKey{objectId: response.ObjectId, name: response.OldName})
			t.RemoveNode(child)
		default:
			t.handlePropertyUpdated(response, parent, child)
		}
	}
}

func (t *Tree) refresh(objectId debugger.RemoteObjectId, parents []*Node) {
	for key := range t.mutations {
		if key.objectId == objectId {
			delete(t.mutations, key)
		}
	}
	reload := false
	for _, parent := range parents {
		if t.arena.Node(parent.id) == nil {
			continue
		}
		t.pendingNewChild.Remove(parent.id)
		if parent.HasChildren() && !parent.shouldRequestChildren {
			reload = true
		}
		t.ReplaceNode(parent, NewBuilder(parent.name, parent.remoteObject).CopyFrom(parent).Build(t.arena))
	}
	// 已经展开过的节点重新获取属性
	if reload {
		t.session.RequestRemoteObjectProperties(objectId)
	}
}

func (t *Tree) handlePropertyAdded(response *debugger.OnRemoteObjectPropertyChanged, parent *Node) {
	child := NewBuilder(*response.NewName, response.Value).Build(t.arena)
	if err := t.AddChild(parent, child); err != nil {
		logrus.Errorf("[handlePropertyAdded] %s, err = %v", parent, err)
		t.arena.release(child)
		return
	}
	key := propertyKey{objectId: response.ObjectId, name: *response.NewName}
	if mutation, ok := t.mutations[key]; ok && mutation.kind == mutationAddChild && mutation.node == parent.id {
		delete(t.mutations, key)
		// 继续输入新属性的值
		if t.BeingEdited() == NoNode {
			t.Events.Dispatch(TreeEvent{Kind: EditValueRequested, Node: child})
		}
	}
}

func (t *Tree) handlePropertyUpdated(response *debugger.OnRemoteObjectPropertyChanged, parent *Node, child *Node) {
	newName := *response.NewName
	value := child.remoteObject
	if response.IsValueChanged {
		value = response.Value
	}
	newChild := NewBuilder(newName, value).CopyFrom(child).Build(t.arena)

	// 重命名时可能覆盖已有的属性
	if response.OldName == "" || newName == "" || response.OldName != newName {
		if existing := parent.FirstChildByName(newName); existing != nil && existing != child {
			t.RemoveNode(existing)
		}
	}
	t.ReplaceNode(child, newChild)

	key := propertyKey{objectId: response.ObjectId, name: response.OldName}
	if mutation, ok := t.mutations[key]; ok && mutation.kind != mutationAddChild && mutation.node == child.id {
		delete(t.mutations, key)
		t.Events.Dispatch(TreeEvent{Kind: NodeSelected, Node: newChild})
	}
}

func (t *Tree) onEvaluateEvent(event session.EvaluateEvent) {
	if event.GlobalObjectChanged {
		if t.oneShot {
			t.deferredEvaluations = map[string]string{}
			t.SetRoot(nil)
			return
		}
		t.ReevaluateRootChildren()
		return
	}
	if event.Response != nil {
		t.handleEvaluateResponse(event.Response)
	}
}

// handleEvaluateResponse 更新名称与表达式相同的所有监视表达式
func (t *Tree) handleEvaluateResponse(response *debugger.OnEvaluateExpressionResponse) {
	if t.root == nil {
		return
	}
	expression := response.Expression
	for _, child := range t.root.childNodes() {
		if child.transient || child.name != expression || child.id == t.beingEdited {
			continue
		}
		newChild := NewBuilder(expression, response.Result).
			CopyFrom(child).
			WasThrown(response.WasThrown).
			Build(t.arena)
		t.ReplaceNode(child, newChild)
	}
	if deferred, ok := t.deferredEvaluations[expression]; ok {
		delete(t.deferredEvaluations, expression)
		if deferred != "" {
			t.session.EvaluateExpression(deferred)
		}
	}
}

func (t *Tree) onStateEvent(event session.StateEvent) {
	if !event.Active {
		t.deferredEvaluations = map[string]string{}
		t.clearMutations()
	}
}
