// Package remoteobject 被调试页面中对象图的本地镜像
//
// 节点保存在Arena中，通过NodeID引用；父节点持有子节点，子节点只保存父节点的NodeID。
// 同一个远程对象可以同时显示在多个节点中（例如监视和作用域），Cache记录每个远程对象对应的所有节点。
package remoteobject

import (
	"fmt"
	"math"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	e "github.com/fansqz/js-debugger/error"
)

const (
	rootNodeName          = "/"
	noPropertiesNodeName  = "No Properties"
	getterPropertyPrefix  = "get "
	setterPropertyPrefix  = "set "
	beingEditedOrderIndex = math.MaxInt32
)

// NodeID 节点句柄，同一个Arena中不会重复使用
type NodeID int

// NoNode 不存在的节点
const NoNode NodeID = 0

// Arena 保存一棵树中所有存活的节点
type Arena struct {
	nodes  map[NodeID]*Node
	nextID NodeID
}

func NewArena() *Arena {
	return &Arena{nodes: map[NodeID]*Node{}}
}

// Node 节点被释放后返回nil
func (a *Arena) Node(id NodeID) *Node {
	return a.nodes[id]
}

func (a *Arena) Size() int {
	return len(a.nodes)
}

func (a *Arena) allocate(node *Node) *Node {
	a.nextID++
	node.id = a.nextID
	node.arena = a
	a.nodes[node.id] = node
	return node
}

// release 释放节点以及它的子树
func (a *Arena) release(node *Node) {
	if node.children != nil {
		for _, child := range node.childNodes() {
			a.release(child)
		}
		node.children.Clear()
	}
	node.parent = NoNode
	delete(a.nodes, node.id)
}

// Node 对象树中的一个属性
type Node struct {
	id                    NodeID
	arena                 *Arena
	name                  string
	orderIndex            int
	parent                NodeID
	children              *treeset.Set
	remoteObject          *debugger.RemoteObject
	wasThrown             bool
	deletable             bool
	writable              bool
	enumerable            bool
	transient             bool
	placeholder           bool
	getterOrSetterName    string
	shouldRequestChildren bool
}

// Builder 构造节点
type Builder struct {
	name               string
	remoteObject       *debugger.RemoteObject
	orderIndex         int
	hasChildren        bool
	wasThrown          bool
	deletable          bool
	writable           bool
	enumerable         bool
	transient          bool
	getterOrSetterName string
}

func NewBuilder(name string, remoteObject *debugger.RemoteObject) *Builder {
	return &Builder{
		name:         name,
		remoteObject: remoteObject,
		hasChildren:  remoteObject != nil && remoteObject.HasChildren,
		deletable:    true,
		writable:     true,
		enumerable:   true,
	}
}

// CopyFrom 沿用proto的顺序和属性标记
func (b *Builder) CopyFrom(proto *Node) *Builder {
	if proto == nil {
		return b
	}
	b.orderIndex = proto.orderIndex
	b.wasThrown = proto.wasThrown
	b.deletable = proto.deletable
	b.writable = proto.writable
	b.enumerable = proto.enumerable
	b.transient = proto.transient
	b.getterOrSetterName = proto.getterOrSetterName
	return b
}

func (b *Builder) OrderIndex(orderIndex int) *Builder {
	b.orderIndex = orderIndex
	return b
}

func (b *Builder) HasChildren(hasChildren bool) *Builder {
	b.hasChildren = hasChildren
	return b
}

func (b *Builder) WasThrown(wasThrown bool) *Builder {
	b.wasThrown = wasThrown
	return b
}

func (b *Builder) Deletable(deletable bool) *Builder {
	b.deletable = deletable
	return b
}

func (b *Builder) Writable(writable bool) *Builder {
	b.writable = writable
	return b
}

func (b *Builder) Enumerable(enumerable bool) *Builder {
	b.enumerable = enumerable
	return b
}

// Transient 节点显示的是随栈帧变化的作用域对象
func (b *Builder) Transient(transient bool) *Builder {
	b.transient = transient
	return b
}

func (b *Builder) getterOrSetter(name string) *Builder {
	b.getterOrSetterName = name
	return b
}

// Build 在arena中创建节点
func (b *Builder) Build(arena *Arena) *Node {
	node := &Node{
		name:               b.name,
		orderIndex:         b.orderIndex,
		remoteObject:       b.remoteObject,
		wasThrown:          b.wasThrown,
		deletable:          b.deletable,
		writable:           b.writable,
		enumerable:         b.enumerable,
		transient:          b.transient,
		getterOrSetterName: b.getterOrSetterName,
	}
	if b.hasChildren && !b.wasThrown {
		node.children = treeset.NewWith(nodeComparator)
	}
	// __proto__ 不能删除，但是可以修改
	if node.name == protoPropertyName {
		node.deletable = false
		node.enumerable = false
	}
	if node.getterOrSetterName != "" {
		node.deletable = false
		node.writable = false
	}
	node.shouldRequestChildren = !node.wasThrown && node.remoteObject != nil && node.remoteObject.HasChildren
	return arena.allocate(node)
}

// NewRoot 根节点只用于组织子节点，没有远程对象
func NewRoot(arena *Arena) *Node {
	return NewBuilder(rootNodeName, nil).HasChildren(true).Deletable(false).Build(arena)
}

func newGetterProperty(arena *Arena, name string, getter *debugger.RemoteObject) *Node {
	return NewBuilder(getterPropertyPrefix+name, getter).getterOrSetter(name).Build(arena)
}

func newSetterProperty(arena *Arena, name string, setter *debugger.RemoteObject) *Node {
	return NewBuilder(setterPropertyPrefix+name, setter).getterOrSetter(name).Build(arena)
}

// newBeingEdited 正在输入名称的新节点，排在最后
func newBeingEdited(arena *Arena) *Node {
	return NewBuilder("", nil).OrderIndex(beingEditedOrderIndex).Build(arena)
}

func newNoPropertiesPlaceholder(arena *Arena) *Node {
	node := NewBuilder(noPropertiesNodeName, nil).Deletable(false).Writable(false).Build(arena)
	node.placeholder = true
	return node
}

func (n *Node) ID() NodeID {
	return n.id
}

func (n *Node) Name() string {
	return n.name
}

// SetName 修改名称，并且在父节点中重新排序
func (n *Node) SetName(name string) {
	parent := n.Parent()
	if parent != nil {
		parent.RemoveChild(n)
	}
	n.name = name
	if parent != nil {
		_ = parent.AddChild(n)
	}
}

func (n *Node) OrderIndex() int {
	return n.orderIndex
}

// NodeKey 节点在界面中的标识
func (n *Node) NodeKey() string {
	return fmt.Sprintf("%s#%d", n.name, n.orderIndex)
}

func (n *Node) Parent() *Node {
	if n.parent == NoNode || n.arena == nil {
		return nil
	}
	return n.arena.Node(n.parent)
}

func (n *Node) HasChildren() bool {
	return n.children != nil
}

func (n *Node) WasThrown() bool {
	return n.wasThrown
}

func (n *Node) RemoteObject() *debugger.RemoteObject {
	return n.remoteObject
}

// ObjectId 没有远程对象时返回空字符串
func (n *Node) ObjectId() debugger.RemoteObjectId {
	if n.remoteObject == nil {
		return ""
	}
	return n.remoteObject.ObjectId
}

// IsDeletable 属性是否可以从父对象中删除
func (n *Node) IsDeletable() bool {
	return n.deletable
}

// IsWritable 属性的值是否可以修改
func (n *Node) IsWritable() bool {
	return n.writable
}

func (n *Node) IsEnumerable() bool {
	return n.enumerable
}

func (n *Node) IsTransient() bool {
	return n.transient
}

// IsPlaceholder 是否是"No Properties"占位节点
func (n *Node) IsPlaceholder() bool {
	return n.placeholder
}

// ShouldRequestChildren 子节点还没有从调试器获取过
func (n *Node) ShouldRequestChildren() bool {
	return n.shouldRequestChildren && n.HasChildren()
}

func (n *Node) SetAllChildrenRequested() {
	n.shouldRequestChildren = false
}

func (n *Node) IsRootChild() bool {
	parent := n.Parent()
	return parent != nil && parent.Parent() == nil
}

// CanAddRemoteObjectProperty 函数和非null的对象可以添加属性
func (n *Node) CanAddRemoteObjectProperty() bool {
	if n.transient || n.remoteObject == nil || !n.HasChildren() {
		return false
	}
	switch n.remoteObject.Type {
	case constants.TypeFunction:
		return true
	case constants.TypeObject:
		return n.remoteObject.SubType != constants.SubTypeNull
	}
	return false
}

// Children 有序的子节点副本
// 已经获取过属性但是没有任何属性的对象，返回一个"No Properties"占位节点
func (n *Node) Children() []*Node {
	if n.children == nil {
		return nil
	}
	if n.children.Empty() && n.remoteObject != nil && !n.shouldRequestChildren {
		_ = n.AddChild(newNoPropertiesPlaceholder(n.arena))
	}
	return n.childNodes()
}

func (n *Node) childNodes() []*Node {
	if n.children == nil {
		return nil
	}
	values := n.children.Values()
	answer := make([]*Node, len(values))
	for i, value := range values {
		answer[i] = value.(*Node)
	}
	return answer
}

// AddChild 添加真实的属性时移除占位节点
func (n *Node) AddChild(child *Node) error {
	if n.children == nil {
		return e.ErrLeafNode
	}
	if !child.placeholder {
		for _, c := range n.childNodes() {
			if c.placeholder {
				n.children.Remove(c)
				n.arena.release(c)
			}
		}
	}
	child.parent = n.id
	n.children.Add(child)
	return nil
}

func (n *Node) RemoveChild(child *Node) {
	if n.children == nil || child.parent != n.id {
		return
	}
	n.children.Remove(child)
	child.parent = NoNode
}

// FirstChildByName 名称为name的第一个子节点，不存在时返回nil
func (n *Node) FirstChildByName(name string) *Node {
	for _, child := range n.childNodes() {
		if child.name == name {
			return child
		}
	}
	return nil
}

func (n *Node) LastChild() *Node {
	if n.children == nil || n.children.Empty() {
		return nil
	}
	it := n.children.Iterator()
	if !it.Last() {
		return nil
	}
	return it.Value().(*Node)
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{%d %s}", n.id, n.NodeKey())
}
